package auth

import (
	"fmt"
	"net/http"

	"github.com/artesarh/rpb/utils"
)

func AdminOnly() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		hfn := func(w http.ResponseWriter, r *http.Request) {
			user, err := UserFromContext(r)
			if err != nil {
				utils.WriteErrorCode(w, err.Error(), http.StatusUnauthorized)
				return
			}

			if !user.IsAdmin {
				utils.WriteErrorCode(w, fmt.Sprintf("user %v is not an admin", user.Username), http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		}
		return http.HandlerFunc(hfn)
	}
}
