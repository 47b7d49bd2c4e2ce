package auth

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"travel-insight/utils"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Listen        string            `yaml:"listen"`
		Static        string            `yaml:"static"`
		StaticDefault string            `yaml:"static_default"`
		StaticAllowed []string          `yaml:"static_allowed"`
		LogDir        string            `yaml:"log_dir"`
		LogLevel      string            `yaml:"log_level"`
		ExportDir     string            `yaml:"export_dir"`
		TemplateVars  map[string]string `yaml:"template_vars"`
	} `yaml:"server"`
	JWT struct {
		Secret            string `yaml:"secret"`
		ExpirationMinutes int    `yaml:"expiration_minutes"`
	} `yaml:"jwt"`
	Auth struct {
		UserBackend string `yaml:"user_backend"` // "file", "mysql", "postgres", "sqlite3"
		UserFile    string `yaml:"user_file"`
		HashMacro   string `yaml:"hash_macro"`
		Salt        string `yaml:"salt"`
		DBDSN       string `yaml:"db_dsn"`
		UserRequest string `yaml:"user_request"` // ex: SELECT hash, salt, role, name FROM users WHERE login = ?
		DBHashMacro string `yaml:"db_hash_macro"`
	} `yaml:"auth"`
	Database struct {
		Driver string `yaml:"driver"` // "mysql", "postgres" or "sqlite3"
		DSN    string `yaml:"dsn"`
	} `yaml:"database"`
	Cache struct {
		Backend       string `yaml:"backend"` // "memory", "redis" or "none"
		TTLMinutes    int    `yaml:"ttl_minutes"`
		RedisAddr     string `yaml:"redis_addr"`
		RedisPassword string `yaml:"redis_password"`
		RedisDB       int    `yaml:"redis_db"`
	} `yaml:"cache"`
	ReportsFile     string `yaml:"reports_file"`
	TemplatesFile   string `yaml:"templates_file"`
	Workers         int    `yaml:"workers"`
	MaxFileAgeHours int    `yaml:"max_file_age_hours"`
}

type UsersFile struct {
	Users map[string]UserInfo `yaml:"users"`
}

type UserInfo struct {
	Hash string `yaml:"hash"`
	Salt string `yaml:"salt"`
	Role string `yaml:"role"`
	Name string `yaml:"name,omitempty"`
}

func LoadConfig(file string) (*Config, error) {
	var cfg Config
	root := utils.GetProjectRoot()
	cfgPath := filepath.Join(root, file)
	data, err := os.ReadFile(cfgPath)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if cfg.ReportsFile == "" {
		cfg.ReportsFile = "reports.yaml"
	}
	if cfg.TemplatesFile == "" {
		cfg.TemplatesFile = "templates.yaml"
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 5
	}
	return &cfg, nil
}

func LoadUsers(file string) (*UsersFile, error) {
	var uf UsersFile
	root := utils.GetProjectRoot()
	cfgPath := filepath.Join(root, file)
	data, err := os.ReadFile(cfgPath)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, &uf); err != nil {
		return nil, err
	}
	return &uf, nil
}

// GetUserFromDB resolves a user through the configured lookup statement,
// ex: "SELECT hash, salt, role, name FROM users WHERE login = ?".
func GetUserFromDB(db *sql.DB, query, username string) (hash, salt, role, name string, err error) {
	row := db.QueryRow(query, username)
	var roleVal, nameVal sql.NullString
	if err = row.Scan(&hash, &salt, &roleVal, &nameVal); err != nil {
		return "", "", "", "", err
	}
	return hash, salt, strings.ToUpper(roleVal.String), nameVal.String, nil
}

func ApplyHashMacro(macro, password, user, userSalt, globalSalt string) (string, error) {
	replace := func(s string) string {
		s = strings.ReplaceAll(s, "{password}", password)
		s = strings.ReplaceAll(s, "{user}", user)
		s = strings.ReplaceAll(s, "{salt}", userSalt)
		s = strings.ReplaceAll(s, "{globalsalt}", globalSalt)
		return s
	}
	macro = strings.TrimSpace(macro)
	if strings.HasPrefix(macro, "{sha256}") {
		plain := extractBetween(macro, "{sha256}(", ")")
		return sha256Hash(replace(plain)), nil
	}
	if strings.HasPrefix(macro, "{sha1}") {
		plain := extractBetween(macro, "{sha1}(", ")")
		return sha1Hash(replace(plain)), nil
	}
	if strings.HasPrefix(macro, "{md5}") {
		plain := extractBetween(macro, "{md5}(", ")")
		return md5Hash(replace(plain)), nil
	}
	if strings.HasPrefix(macro, "{clear}") {
		plain := extractBetween(macro, "{clear}(", ")")
		return replace(plain), nil
	}
	return "", errors.New("unsupported hash macro")
}

func extractBetween(str, start, end string) string {
	a := strings.Index(str, start)
	if a == -1 {
		return ""
	}
	a += len(start)
	b := strings.LastIndex(str, end)
	if b == -1 || b <= a {
		return ""
	}
	return str[a:b]
}

func sha256Hash(s string) string {
	h := sha256.Sum256([]byte(s))
	return hex.EncodeToString(h[:])
}

func sha1Hash(s string) string {
	h := sha1.Sum([]byte(s))
	return hex.EncodeToString(h[:])
}

func md5Hash(s string) string {
	h := md5.Sum([]byte(s))
	return hex.EncodeToString(h[:])
}
