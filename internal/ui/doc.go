// Package ui provides the terminal log viewer built on Bubble Tea.
//
// # Layout
//
//	┌──────────────────────────────────────────────────────────────┐
//	│ logview  ● LIVE  app.log  Lines: 812  FOLLOW  14:32:15 (now)  │ header
//	│ j/k:Scroll  g/G:Top/Bottom  r:Reconnect  q:Quit  ?:More  T:…  │ command bar
//	│╭────────────────────────────────────────────────────────────╮│
//	││ 2025-10-08 21:01:05 INFO starting                          ││ log pane
//	││ 2025-10-08 21:01:06 ERROR failed                           ││
//	│╰────────────────────────────────────────────────────────────╯│
//	└──────────────────────────────────────────────────────────────┘
//
// # Event Flow
//
// Init fetches the log snapshot. When it arrives it is applied to the pane
// (or a notice is shown) and the stream client connects. From then on a
// single outstanding command waits on stream.Client.Next and returns the
// event to Update, which dispatches it and waits again. The Bubble Tea
// update loop is therefore the client's only owner; transport goroutines
// and reconnect timers only ever post events.
//
// Focus reporting is enabled, and regaining terminal focus calls
// VisibilityRestored, so a stream that dropped while the terminal was in the
// background reconnects as soon as the user comes back. The r key is the
// manual reconnect, and the only way out once retries are exhausted.
//
// # Auto-scroll
//
// Before each append the pane asks the scroll package whether the view is
// within the follow threshold of the bottom. If it is, the view jumps to the
// new last line afterwards; otherwise the user's position is kept, even
// when old lines are dropped from the top of the buffer.
//
// # Themes
//
// Nightfox (default), Kanagawa and Slate. T cycles them and the choice is
// saved to the prefs file.
package ui
