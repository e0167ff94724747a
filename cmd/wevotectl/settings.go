package main

import (
	"fmt"
	"os"

	"gopkg.in/ini.v1"
)

// iniEnv maps section.key in the --config file to the environment variable
// it overrides.
var iniEnv = map[string]map[string]string{
	"database": {
		"url":                      "DATABASE_URL",
		"we_vote_id_prefix":        "WE_VOTE_ID_PREFIX",
		"skip_embedded_migrations": "WEVOTE_SKIP_EMBEDDED_MIGRATIONS",
	},
	"civic": {
		"api_key":             "GOOGLE_CIVIC_API_KEY",
		"representatives_url": "REPRESENTATIVES_BY_ADDRESS_URL",
		"timeout":             "WEVOTE_CIVIC_TIMEOUT",
		"rps":                 "WEVOTE_CIVIC_RPS",
		"batch_size":          "WEVOTE_REPRESENTATIVES_BATCH_SIZE",
	},
}

// fileSettings are the values read from --config that have no environment
// variable of their own.
type fileSettings struct {
	ImportGlob string
	StateCode  string
}

// applyConfigFile copies every recognised key from the ini file at path into
// the process environment, so config.Load sees file values over env values.
func applyConfigFile(path string) (fileSettings, error) {
	var fs fileSettings
	if path == "" {
		return fs, nil
	}
	f, err := ini.Load(path)
	if err != nil {
		return fs, fmt.Errorf("load config file %s: %w", path, err)
	}
	for section, keys := range iniEnv {
		sec := f.Section(section)
		for key, env := range keys {
			if !sec.HasKey(key) {
				continue
			}
			if err := os.Setenv(env, sec.Key(key).String()); err != nil {
				return fs, fmt.Errorf("set %s from [%s] %s: %w", env, section, key, err)
			}
		}
	}
	imp := f.Section("import")
	fs.ImportGlob = imp.Key("glob").String()
	fs.StateCode = imp.Key("state_code").String()
	return fs, nil
}
