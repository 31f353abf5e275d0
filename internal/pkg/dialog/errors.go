package dialog

import "errors"

// ErrUnknownScope is returned when a session is requested for a support
// method the bot does not offer.
var ErrUnknownScope = errors.New("dialog: unknown conversation scope")
