package api

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"travel-insight/auth"
)

func LoginHandler(h *Handlers) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid JSON", http.StatusBadRequest)
			return
		}
		username := req.Username
		cfg := h.Cfg
		var userHash, userSalt, role, name string

		switch cfg.Auth.UserBackend {
		case "file":
			u, ok := h.Users.Users[username]
			if !ok {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				h.LoginLog.WithField("user", username).Warn("login failed: unknown user")
				return
			}
			userHash, userSalt = u.Hash, u.Salt
			role, name = strings.ToUpper(u.Role), u.Name

			passHash, _ := auth.ApplyHashMacro(cfg.Auth.HashMacro, req.Password, username, userSalt, cfg.Auth.Salt)
			if passHash != userHash {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				h.LoginLog.WithField("user", username).Warn("login failed: wrong password")
				return
			}
		case "mysql", "postgres", "sqlite3":
			db, err := sql.Open(cfg.Auth.UserBackend, cfg.Auth.DBDSN)
			if err != nil {
				http.Error(w, "Database error", http.StatusInternalServerError)
				h.LoginLog.WithError(err).Warn("login failed: db open")
				return
			}
			defer db.Close()

			userHash, userSalt, role, name, err = auth.GetUserFromDB(db, cfg.Auth.UserRequest, username)
			if err != nil {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				h.LoginLog.WithField("user", username).Warn("login failed: no db user")
				return
			}
			passHash, _ := auth.ApplyHashMacro(cfg.Auth.DBHashMacro, req.Password, username, userSalt, cfg.Auth.Salt)
			if passHash != userHash {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				h.LoginLog.WithField("user", username).Warn("login failed: db wrong password")
				return
			}
		default:
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		tokenString, err := auth.GenerateJWT(cfg.JWT.Secret, username, role, name, cfg.JWT.ExpirationMinutes)
		if err != nil {
			http.Error(w, "Server error", http.StatusInternalServerError)
			h.LoginLog.WithError(err).Error("login failed: jwt")
			return
		}
		writeJSON(w, map[string]string{"token": tokenString, "role": role})
		h.LoginLog.WithFields(map[string]any{"user": username, "role": role}).Info("login ok")
	}
}
