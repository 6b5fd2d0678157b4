package errlog

import (
	"log/slog"

	"github.com/samber/oops"
)

// Log writes err at error level. Errors built with oops contribute their code
// and context as separate attributes; plain errors are logged as their string.
func Log(logger *slog.Logger, msg string, err error, attrs ...any) {
	if oopsErr, ok := oops.AsOops(err); ok {
		attrs = append(attrs, "err", oopsErr.Error())
		if code := oopsErr.Code(); code != nil {
			attrs = append(attrs, "code", code)
		}
		if ctx := oopsErr.Context(); len(ctx) > 0 {
			attrs = append(attrs, "context", ctx)
		}
		logger.Error(msg, attrs...)
		return
	}
	logger.Error(msg, append(attrs, "err", err)...)
}
