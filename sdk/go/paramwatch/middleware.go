package paramwatch

import (
	"encoding/json"
	"net/http"
	"strconv"
)

// Middleware returns an http.Handler that checks each request's call
// arguments before passing to the next handler. Arguments come from
// repeated "arg" query parameters; "block", "timestamp" and "oracle"
// set the block context. Blocked requests receive a 403 with a JSON body.
func (c *Client) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		call, err := callFromRequest(r)
		if err != nil {
			writeBlocked(w, http.StatusBadRequest, Result{Decision: Deny, Reason: err.Error()})
			return
		}

		result := c.Check(call)
		if !result.Allowed() {
			writeBlocked(w, http.StatusForbidden, result)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func writeBlocked(w http.ResponseWriter, code int, result Result) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]any{
		"blocked":     true,
		"decision":    string(result.Decision),
		"reason":      result.Reason,
		"policy_hash": result.PolicyHash,
	})
}

// callFromRequest maps an HTTP request to an SDK Call.
func callFromRequest(r *http.Request) (Call, error) {
	q := r.URL.Query()
	call := Call{Args: q["arg"]}

	if !q.Has("block") && !q.Has("timestamp") && !q.Has("oracle") {
		return call, nil
	}

	env := Env{Oracle: q.Get("oracle")}
	if v := q.Get("block"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return Call{}, err
		}
		env.BlockNumber = n
	}
	if v := q.Get("timestamp"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return Call{}, err
		}
		env.Timestamp = n
	}
	call.Env = &env
	return call, nil
}
