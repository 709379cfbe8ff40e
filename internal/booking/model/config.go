package model

import "time"

// ================ Config ================

// NavigationConfig carries the command vocabularies. They are configuration
// data so the sets can be extended without redeploying code.
type NavigationConfig struct {
	CancelCommands   []string `envconfig:"BOOKING_CANCEL_COMMANDS" default:"отмена,отменить,стоп,cancel,отмени,начать заново,начнём заново,начнем заново,сброс,сбросить"`
	BackCommands     []string `envconfig:"BOOKING_BACK_COMMANDS" default:"назад,вернись,вернуться,back"`
	ShowMoreCommands []string `envconfig:"BOOKING_SHOW_MORE_COMMANDS" default:"показать все,покажи все,ещё варианты,еще варианты,show all,show more"`
}

// FSMConfig tunes the per-turn dialogue pipeline.
type FSMConfig struct {
	// QuoteRetryBudget bounds consecutive pricing failures per session before
	// the dialogue falls back to re-asking the dates.
	QuoteRetryBudget int `envconfig:"BOOKING_QUOTE_RETRY_BUDGET" default:"2"`
	// MaxOptions caps how many distinct room types one answer shows.
	MaxOptions int `envconfig:"BOOKING_MAX_OPTIONS" default:"3"`
	// QuoteTimeout bounds one pricing call so a stalled PMS cannot starve
	// other sessions.
	QuoteTimeout time.Duration `envconfig:"BOOKING_QUOTE_TIMEOUT" default:"15s"`
	// StoreTimeout bounds one context-store read or write.
	StoreTimeout time.Duration `envconfig:"BOOKING_STORE_TIMEOUT" default:"3s"`
}
