package main

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/hupe1980/lotgo/model"
)

var (
	spotStyle    = lipgloss.NewStyle().Bold(true)
	messageStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("250")).Italic(true)
	statsStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))

	statusStyles = map[model.SpotStatus]lipgloss.Style{
		model.StatusAvailable:        lipgloss.NewStyle().Foreground(lipgloss.Color("34")),
		model.StatusSoftLocked:       lipgloss.NewStyle().Foreground(lipgloss.Color("220")),
		model.StatusBooked:           lipgloss.NewStyle().Foreground(lipgloss.Color("39")),
		model.StatusTimeExceeded:     lipgloss.NewStyle().Foreground(lipgloss.Color("208")),
		model.StatusWrongParking:     lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
		model.StatusReserved:         lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		model.StatusReservedOccupied: lipgloss.NewStyle().Foreground(lipgloss.Color("135")),
	}
)

// termObserver renders status changes and messages as colored terminal
// lines. It runs on the bus consumer goroutine, so writes stay serialized;
// the mutex only guards against interleaving with the stats printer.
type termObserver struct {
	mu  sync.Mutex
	out io.Writer
}

func newTermObserver(out io.Writer) *termObserver {
	return &termObserver{out: out}
}

func (o *termObserver) OnSpotStatusChanged(spotID string, status model.SpotStatus) {
	style, ok := statusStyles[status]
	if !ok {
		style = lipgloss.NewStyle()
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	fmt.Fprintf(o.out, "%s %s %s\n",
		timestamp(),
		spotStyle.Render(fmt.Sprintf("%-4s", spotID)),
		style.Render(status.String()),
	)
}

func (o *termObserver) OnUserMessage(text string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	fmt.Fprintf(o.out, "%s %s\n", timestamp(), messageStyle.Render(text))
}

func (o *termObserver) printStats(line string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	fmt.Fprintf(o.out, "%s %s\n", timestamp(), statsStyle.Render(line))
}

func timestamp() string {
	return statsStyle.Render(time.Now().Format("15:04:05"))
}
