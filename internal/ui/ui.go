package ui

import (
	"errors"
	"fmt"
	"image/color"
	"strings"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"github.com/nevisdale/micro6502/internal/cpu"
	"github.com/nevisdale/micro6502/internal/emulator"
)

// P - pause
// R - one step and stop
// Enter - reset
// Esc - quit

const (
	screenWidth  = 320
	screenHeight = 240
	screenScale  = 2

	historySize = 12
)

type UI struct {
	emu          *emulator.Emulator
	stepsPerTick int

	paused  bool
	oneStep bool
	err     error

	history [historySize]string
	next    int
}

// New creates a monitor that runs stepsPerTick instructions every frame
// while not paused. OnStep must be set as the emulator's step hook and the
// emulator attached before Run.
func New(stepsPerTick int) *UI {
	return &UI{stepsPerTick: max(1, stepsPerTick)}
}

func (ui *UI) Attach(emu *emulator.Emulator) {
	ui.emu = emu
}

// OnStep keeps the last executed instructions for display.
func (ui *UI) OnStep(in cpu.Instruction, _ cpu.Registers) {
	ui.history[ui.next] = fmt.Sprintf("$%04X: %s", in.PC, in)
	ui.next = (ui.next + 1) % historySize
}

func (ui *UI) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}

	if inpututil.IsKeyJustPressed(ebiten.KeyP) {
		ui.paused = !ui.paused
	}

	if inpututil.IsKeyJustPressed(ebiten.KeyR) {
		ui.paused = true
		ui.oneStep = true
	}

	if inpututil.IsKeyJustPressed(ebiten.KeyEnter) {
		ui.emu.Reset()
		ui.err = nil
		ui.history = [historySize]string{}
		ui.next = 0
	}

	steps := ui.stepsPerTick
	if ui.paused {
		steps = 0
		if ui.oneStep {
			steps = 1
			ui.oneStep = false
		}
	}

	for i := 0; i < steps && ui.emu.State() == emulator.StateRunning; i++ {
		if err := ui.emu.Step(); err != nil {
			if !errors.Is(err, emulator.ErrHalted) {
				ui.err = err
			}
			break
		}
	}
	return nil
}

func (ui *UI) Draw(screen *ebiten.Image) {
	regs := ui.emu.Registers()

	var info strings.Builder
	fmt.Fprintf(&info, " FPS: %0.0f\n", ebiten.ActualFPS())
	fmt.Fprintf(&info, " STATE: %s", ui.emu.State())
	if ui.paused {
		info.WriteString(" (paused)")
	}
	info.WriteString("\n")
	fmt.Fprintf(&info, " FLAGS: %s\n", regs.P)
	fmt.Fprintf(&info, " PC: $%04X  SP: $%02X\n", regs.PC, regs.SP)
	fmt.Fprintf(&info, " A: $%02X [%03d]", regs.A, regs.A)
	fmt.Fprintf(&info, " X: $%02X [%03d]", regs.X, regs.X)
	fmt.Fprintf(&info, " Y: $%02X [%03d]\n", regs.Y, regs.Y)
	fmt.Fprintf(&info, " STEPS: %d  CYCLES: %d\n", ui.emu.Steps(), ui.emu.Cycles())
	if ui.err != nil {
		fmt.Fprintf(&info, " ERROR: %s\n", ui.err)
	}

	info.WriteString("\n")
	for i := 0; i < historySize; i++ {
		line := ui.history[(ui.next+i)%historySize]
		if line == "" {
			continue
		}
		marker := " "
		if i == historySize-1 {
			marker = "*"
		}
		info.WriteString(marker + line + "\n")
	}

	vector.DrawFilledRect(screen, 0, 0, screenWidth, screenHeight, color.RGBA{50, 50, 50, 255}, false)
	ebitenutil.DebugPrintAt(screen, info.String(), 0, 0)
}

func (ui *UI) Layout(_, _ int) (int, int) {
	return screenWidth, screenHeight
}

func RunUI(ui *UI) error {
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetWindowSize(screenWidth*screenScale, screenHeight*screenScale)
	ebiten.SetWindowTitle("micro6502")
	ebiten.SetTPS(60)
	err := ebiten.RunGame(ui)
	if errors.Is(err, ebiten.Termination) {
		return nil
	}
	return err
}
