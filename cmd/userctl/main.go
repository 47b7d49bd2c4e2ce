package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"travel-insight/auth"
	"travel-insight/utils"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		return
	}
	switch os.Args[1] {
	case "add":
		if len(os.Args) < 3 {
			fmt.Println("Usage: userctl add <username>")
			os.Exit(1)
		}
		addUser(os.Args[2])
	case "disable":
		if len(os.Args) < 3 {
			fmt.Println("Usage: userctl disable <username>")
			os.Exit(1)
		}
		disableUser(os.Args[2])
	case "list":
		listUsers()
	default:
		usage()
	}
}

func usage() {
	fmt.Println(`Usage: userctl [add|disable|list] <username>

add <username>       : Add a user interactively (password prompted)
disable <username>   : Comment out a user (soft delete, in users.yaml)
list                 : List all users`)
}

func addUser(username string) {
	cfg, err := auth.LoadConfig("config.yaml")
	if err != nil {
		fmt.Println("Cannot read config.yaml:", err)
		os.Exit(1)
	}
	usersFile := cfg.Auth.UserFile
	users, err := auth.LoadUsers(usersFile)
	if err != nil {
		if os.IsNotExist(err) {
			users = &auth.UsersFile{Users: make(map[string]auth.UserInfo)}
		} else {
			fmt.Println("Cannot read users file:", err)
			os.Exit(1)
		}
	}
	if _, exists := users.Users[username]; exists {
		fmt.Println("User already exists.")
		os.Exit(1)
	}
	pass, err := utils.PromptPasswordTwice()
	if err != nil {
		fmt.Println("Error:", err)
		os.Exit(1)
	}
	salt := utils.RandomHex(8)
	hash, err := auth.ApplyHashMacro(cfg.Auth.HashMacro, strings.TrimSpace(pass), username, salt, cfg.Auth.Salt)
	if err != nil {
		fmt.Println("Hashing error:", err)
		os.Exit(1)
	}
	role := promptRole()
	fmt.Print("Display name (optional): ")
	reader := ""
	fmt.Scanln(&reader)

	users.Users[username] = auth.UserInfo{Hash: hash, Salt: salt, Role: role, Name: reader}
	saveUsers(usersFile, users)
	fmt.Println("User added.")
}

func promptRole() string {
	valid := map[string]bool{"ADMIN": true, "MANAGER": true, "STAFF": true, "AGENT": true, "CUSTOMER": true}
	for {
		fmt.Print("Role (admin/manager/staff/agent/customer): ")
		var rep string
		fmt.Scanln(&rep)
		role := strings.ToUpper(strings.TrimSpace(rep))
		if valid[role] {
			return role
		}
		fmt.Println("Unknown role.")
	}
}

func disableUser(username string) {
	cfg, err := auth.LoadConfig("config.yaml")
	if err != nil {
		fmt.Println("Cannot read config.yaml:", err)
		os.Exit(1)
	}
	usersFile := cfg.Auth.UserFile

	lines, err := utils.ReadLines(filepath.Join(utils.GetProjectRoot(), usersFile))
	if err != nil {
		fmt.Println("Cannot read users file:", err)
		os.Exit(1)
	}
	out := []string{}
	inUser := false

	for _, l := range lines {
		trim := strings.TrimSpace(l)
		if strings.HasPrefix(trim, username+":") && !strings.HasPrefix(trim, "#") {
			inUser = true
			out = append(out, "# "+l)
			continue
		}
		if inUser {
			if strings.HasPrefix(trim, "#") || trim == "" {
				inUser = trim != ""
				out = append(out, l)
			} else if strings.HasSuffix(trim, ":") && !strings.HasPrefix(l, " ") {
				// next top-level user entry
				inUser = false
				out = append(out, l)
			} else {
				out = append(out, "# "+l)
			}
			continue
		}
		out = append(out, l)
	}

	if !strings.Contains(strings.Join(out, "\n"), "# "+username+":") {
		fmt.Println("User not found or already disabled.")
		return
	}

	if err := os.WriteFile(usersFile, []byte(strings.Join(out, "\n")+"\n"), 0644); err != nil {
		fmt.Println("Write error:", err)
		os.Exit(1)
	}
	fmt.Println("User disabled in YAML.")
}

func listUsers() {
	cfg, err := auth.LoadConfig("config.yaml")
	if err != nil {
		fmt.Println("Cannot read config.yaml:", err)
		os.Exit(1)
	}
	users, err := auth.LoadUsers(cfg.Auth.UserFile)
	if err != nil {
		fmt.Println("Cannot read users file:", err)
		os.Exit(1)
	}
	fmt.Println("Registered users:")
	for u, info := range users.Users {
		fmt.Printf("- %s [%s]\n", u, info.Role)
	}
}

func saveUsers(usersFile string, users *auth.UsersFile) {
	out, err := yaml.Marshal(users)
	if err != nil {
		fmt.Println("YAML error:", err)
		os.Exit(1)
	}
	if err := os.WriteFile(usersFile, out, 0644); err != nil {
		fmt.Println("Write error:", err)
		os.Exit(1)
	}
}
