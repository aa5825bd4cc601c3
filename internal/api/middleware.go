package api

import (
	"fmt"
	"net/http"

	"github.com/teris-io/shortid"
)

func (app *DmApp) errorHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				var panicError error
				switch e := err.(type) {
				case error:
					panicError = e
				default:
					panicError = fmt.Errorf("%v", e)
				}
				app.log.Printf("panic: %v", panicError)
				errResp := NewInternalServerError(panicError)
				w.Header().Set("Connection", "close")
				app.writeJson(w, errResp.StatusCode, errResp)
				return
			}
		}()

		next.ServeHTTP(w, r)
	})
}

// requestId tags every response with a short id so log lines can be
// matched to requests.
func (app *DmApp) requestId(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := shortid.Generate()
		if err != nil {
			app.log.Printf("generate request id: %v", err)
		} else {
			w.Header().Set("X-Request-Id", id)
			app.log.Printf("%s %s %s", id, r.Method, r.URL.Path)
		}

		next.ServeHTTP(w, r)
	})
}

func (app *DmApp) authMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tokenString, ok := bearerToken(r)
		if !ok {
			errResp := NewUnauthorizedError()
			app.writeJson(w, errResp.StatusCode, errResp)
			return
		}

		userId, err := app.extractUserIdFromToken(tokenString)
		if err != nil {
			app.log.Printf("failed to extract user id from token: %v", err)
			errResp := NewUnauthorizedError()
			app.writeJson(w, errResp.StatusCode, errResp)
			return
		}

		ctx := WithUserId(r.Context(), userId)
		w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, private")

		next(w, r.WithContext(ctx))
	}
}
