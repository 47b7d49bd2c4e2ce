package static

import (
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"travel-insight/auth"
)

// RegisterStaticHandler serves static files with a whitelist and a fallback
// directory (server.static / server.static_default).
func RegisterStaticHandler(cfg *auth.Config, accessLog *logrus.Logger) {
	staticDir := cfg.Server.Static
	if staticDir == "" {
		staticDir = "./static"
	}
	staticDefault := cfg.Server.StaticDefault
	if staticDefault == "" {
		staticDefault = "./static"
	}
	allowed := cfg.Server.StaticAllowed

	http.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		reqPath := strings.TrimPrefix(r.URL.Path, "/")
		if reqPath == "" {
			reqPath = "index.html"
		}

		// Whitelist (wildcard support)
		if !isAllowedWildcard(reqPath, allowed) {
			http.Error(w, "Forbidden", http.StatusForbidden)
			accessLog.WithField("path", reqPath).Warn("static refused")
			return
		}

		filePath := filepath.Join(staticDir, reqPath)
		content, err := os.ReadFile(filePath)
		if err != nil {
			// Fallback: static_default
			filePath = filepath.Join(staticDefault, reqPath)
			content, err = os.ReadFile(filePath)
		}
		if err != nil {
			http.NotFound(w, r)
			accessLog.WithField("path", reqPath).Info("static not found")
			return
		}

		final := applyTemplateMacros(string(content), cfg.Server.TemplateVars)
		w.Header().Set("Content-Type", mime.TypeByExtension(filepath.Ext(filePath)))
		w.Write([]byte(final))
		accessLog.WithField("path", reqPath).Debug("static served")
	})
}

func applyTemplateMacros(content string, vars map[string]string) string {
	for key, val := range vars {
		placeholder := "{" + key + "}"
		content = strings.ReplaceAll(content, placeholder, val)
	}
	return content
}

func isAllowedWildcard(fileName string, allowed []string) bool {
	for _, pattern := range allowed {
		if matched, _ := filepath.Match(pattern, fileName); matched {
			return true
		}
		if strings.HasPrefix(pattern, "*/") {
			suffix := pattern[2:]
			if strings.HasSuffix(fileName, suffix) {
				return true
			}
		}
	}
	return false
}
