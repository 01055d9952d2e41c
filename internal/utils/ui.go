package utils

import (
	"github.com/go-telegram/bot/models"

	"github.com/BatmanBruc/convert-menu-bot/internal/formats"
)

const buttonsPerRow = 2

// BuildInlineKeyboard lays buttons out in rows and appends extra buttons as a final row of their own.
func BuildInlineKeyboard(buttons []formats.FormatButton, footer ...formats.FormatButton) *models.InlineKeyboardMarkup {
	pad := func(s string) string { return " " + s + " " }
	rows := make([][]models.InlineKeyboardButton, 0, len(buttons)/buttonsPerRow+2)
	row := make([]models.InlineKeyboardButton, 0, buttonsPerRow)
	for i, button := range buttons {
		if i > 0 && i%buttonsPerRow == 0 {
			rows = append(rows, row)
			row = make([]models.InlineKeyboardButton, 0, buttonsPerRow)
		}
		row = append(row, models.InlineKeyboardButton{
			Text:         pad(button.Text),
			CallbackData: button.CallbackData,
		})
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}

	if len(footer) > 0 {
		last := make([]models.InlineKeyboardButton, 0, len(footer))
		for _, button := range footer {
			last = append(last, models.InlineKeyboardButton{
				Text:         button.Text,
				CallbackData: button.CallbackData,
			})
		}
		rows = append(rows, last)
	}

	return &models.InlineKeyboardMarkup{
		InlineKeyboard: rows,
	}
}
