package util

import (
	"context"
	"fmt"
	"log"
	"net/http"
)

type loggerKeyType struct{}

var loggerKey = loggerKeyType{}

// Logger is the sink a request logger writes through. *log.Logger satisfies it.
type Logger interface {
	Printf(format string, v ...any)
}

// RequestLogger annotates log lines with the request method and path so that
// operation callbacks deep in the call chain produce traceable output without
// threading the request through every signature.
type RequestLogger struct {
	sink   Logger
	method string
	path   string
	user   string
}

// WithRequest builds a request-scoped logger. The user is the authenticated
// identity when known, empty otherwise.
func WithRequest(sink Logger, r *http.Request, user string) *RequestLogger {
	return &RequestLogger{
		sink:   sink,
		method: r.Method,
		path:   r.URL.String(),
		user:   user,
	}
}

func (rl *RequestLogger) logf(level, format string, v ...any) {
	prefix := fmt.Sprintf("%s [%s %s]", level, rl.method, rl.path)
	if rl.user != "" {
		prefix += fmt.Sprintf(" (%s)", rl.user)
	}
	rl.sink.Printf("%s: %s", prefix, fmt.Sprintf(format, v...))
}

func (rl *RequestLogger) Infof(format string, v ...any)  { rl.logf("INFO", format, v...) }
func (rl *RequestLogger) Errorf(format string, v ...any) { rl.logf("ERROR", format, v...) }

// ContextWithLogger stores the request logger for downstream handlers.
func ContextWithLogger(ctx context.Context, rl *RequestLogger) context.Context {
	return context.WithValue(ctx, loggerKey, rl)
}

// FromContext retrieves the request logger, or nil when none was stored.
func FromContext(ctx context.Context) *RequestLogger {
	if ctx == nil {
		return nil
	}

	rl, _ := ctx.Value(loggerKey).(*RequestLogger)
	return rl
}

// Infof logs through the request logger carried by ctx, falling back to the
// process logger when the request was not wrapped.
func Infof(ctx context.Context, format string, v ...any) {
	if rl := FromContext(ctx); rl != nil {
		rl.Infof(format, v...)
		return
	}

	log.Printf("INFO: "+format, v...)
}

// Errorf is the error-level counterpart of Infof.
func Errorf(ctx context.Context, format string, v ...any) {
	if rl := FromContext(ctx); rl != nil {
		rl.Errorf(format, v...)
		return
	}

	log.Printf("ERROR: "+format, v...)
}
