package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"

	cfgpkg "github.com/veranemoloko/course-archive/internal/config"
)

var errNoTerminal = errors.New("credentials missing and stdin is not a terminal")

// promptCredentials asks for the user and password that were not configured.
func promptCredentials(cfg *cfgpkg.Config) error {
	if cfg.User != "" && cfg.Password != "" {
		return nil
	}
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return errNoTerminal
	}

	if cfg.User == "" {
		fmt.Fprint(os.Stderr, "User: ")
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil {
			return fmt.Errorf("read user: %w", err)
		}
		cfg.User = strings.TrimSpace(line)
	}

	if cfg.Password == "" {
		fmt.Fprint(os.Stderr, "Password: ")
		pw, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return fmt.Errorf("read password: %w", err)
		}
		cfg.Password = string(pw)
	}
	return nil
}
