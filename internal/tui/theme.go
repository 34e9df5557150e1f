package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/utafrali/storefront/internal/domain"
)

// Theme is the colour palette of the catalog browser. Colours are ANSI
// 256-colour codes.
type Theme struct {
	NormalText lipgloss.Color
	FaintText  lipgloss.Color

	SelectedBackground lipgloss.Color
	SelectedForeground lipgloss.Color

	HeaderForeground lipgloss.Color
	BorderColor      lipgloss.Color
	HelpText         lipgloss.Color

	Available   lipgloss.Color
	Unavailable lipgloss.Color

	ErrorText  lipgloss.Color
	NoticeText lipgloss.Color
}

// DefaultTheme targets dark terminals.
var DefaultTheme = Theme{
	NormalText:         lipgloss.Color("252"),
	FaintText:          lipgloss.Color("243"),
	SelectedBackground: lipgloss.Color("237"),
	SelectedForeground: lipgloss.Color("255"),
	HeaderForeground:   lipgloss.Color("75"),
	BorderColor:        lipgloss.Color("240"),
	HelpText:           lipgloss.Color("241"),
	Available:          lipgloss.Color("114"),
	Unavailable:        lipgloss.Color("174"),
	ErrorText:          lipgloss.Color("203"),
	NoticeText:         lipgloss.Color("221"),
}

// AvailabilityColor returns the colour for a product availability.
func (theme Theme) AvailabilityColor(availability string) lipgloss.Color {
	if availability == domain.AvailabilityAvailable {
		return theme.Available
	}
	return theme.Unavailable
}
