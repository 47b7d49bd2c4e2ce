package main

import (
	"database/sql"
	"fmt"
	"os"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"travel-insight/auth"
	"travel-insight/config"
)

// schema-check verifies that every physical column declared in reports.yaml
// actually exists in the live database, so a typo shows up at deploy time
// instead of as a runtime query error.
func main() {
	cfg, err := auth.LoadConfig("config.yaml")
	if err != nil {
		fmt.Println("Cannot read config.yaml:", err)
		os.Exit(1)
	}
	registry, err := config.LoadReportsConfig(cfg.ReportsFile)
	if err != nil {
		fmt.Printf("Cannot read %s: %v\n", cfg.ReportsFile, err)
		os.Exit(1)
	}
	db, err := sql.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		fmt.Println("Cannot open database:", err)
		os.Exit(1)
	}
	defer db.Close()

	failures := 0
	for _, name := range registry.Types() {
		rs, _ := registry.Schema(name)
		available, err := tableColumns(db, rs.Table)
		if err != nil {
			fmt.Printf("[%s] cannot inspect table %s: %v\n", name, rs.Table, err)
			failures++
			continue
		}
		joined := map[string]bool{}
		for _, j := range rs.Joins {
			joined[j.Alias] = true
		}
		for logical, col := range rs.Columns {
			phys := col.SQL
			if i := strings.IndexByte(phys, '.'); i >= 0 {
				// joined columns are checked against their own table
				if joined[phys[:i]] || phys[:i] == rs.Alias {
					if phys[:i] != rs.Alias {
						continue
					}
					phys = phys[i+1:]
				}
			}
			if !available[phys] {
				fmt.Printf("[%s] column %q maps to %q which is missing from %s\n", name, logical, col.SQL, rs.Table)
				failures++
			}
		}
		fmt.Printf("[%s] checked\n", name)
	}
	if failures > 0 {
		fmt.Printf("%d problem(s) found\n", failures)
		os.Exit(1)
	}
	fmt.Println("All report schemas match the database.")
}

func tableColumns(db *sql.DB, table string) (map[string]bool, error) {
	rows, err := db.Query("SELECT * FROM " + table + " LIMIT 1")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	out := map[string]bool{}
	for _, c := range cols {
		out[c] = true
	}
	return out, nil
}
