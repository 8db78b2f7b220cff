package config

import (
	"flag"
	"fmt"
	"io"
)

// flagSetters copies a flag value from the parsed flag config into the
// effective config. Short and long names map to the same setter.
var flagSetters = map[string]func(dst, src *Config){}

func register(setter func(dst, src *Config), names ...string) {
	for _, n := range names {
		flagSetters[n] = setter
	}
}

func init() {
	register(func(d, s *Config) { d.User = s.User }, "u", "user")
	register(func(d, s *Config) { d.Password = s.Password }, "p", "password")
	register(func(d, s *Config) { d.Output = s.Output }, "o", "output")
	register(func(d, s *Config) { d.Format = s.Format }, "f", "format")
	register(func(d, s *Config) { d.Delay = s.Delay }, "d", "delay")
	register(func(d, s *Config) { d.Retries = s.Retries }, "r", "retries")
	register(func(d, s *Config) { d.Concurrency = s.Concurrency }, "c", "concurrency")
	register(func(d, s *Config) { d.Headless = s.Headless }, "headless")
	register(func(d, s *Config) { d.Debug = s.Debug }, "debug")
	register(func(d, s *Config) { d.Relogin = s.Relogin }, "relogin")
	register(func(d, s *Config) { d.BrowserBin = s.BrowserBin }, "browser")
	register(func(d, s *Config) { d.BackoffInitial = s.BackoffInitial }, "backoff-initial")
	register(func(d, s *Config) { d.BackoffMax = s.BackoffMax }, "backoff-max")
	register(func(d, s *Config) { d.StatusAddr = s.StatusAddr }, "status-addr")
	register(func(d, s *Config) { d.LogFormat = s.LogFormat }, "log-format")
}

func newFlagSet(cfg *Config, configPath *string, out io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet("course-archive", flag.ContinueOnError)
	fs.SetOutput(out)

	fs.StringVar(&cfg.User, "u", cfg.User, "")
	fs.StringVar(&cfg.User, "user", cfg.User, "Username (email)")
	fs.StringVar(&cfg.Password, "p", cfg.Password, "")
	fs.StringVar(&cfg.Password, "password", cfg.Password, "Password")
	fs.StringVar(&cfg.Output, "o", cfg.Output, "")
	fs.StringVar(&cfg.Output, "output", cfg.Output, "Output directory")
	fs.StringVar(&cfg.Format, "f", cfg.Format, "")
	fs.StringVar(&cfg.Format, "format", cfg.Format, "Save pages as pdf or png")
	fs.IntVar(&cfg.Delay, "d", cfg.Delay, "")
	fs.IntVar(&cfg.Delay, "delay", cfg.Delay, "Seconds to wait before saving a page")
	fs.IntVar(&cfg.Retries, "r", cfg.Retries, "")
	fs.IntVar(&cfg.Retries, "retries", cfg.Retries, "Retries after the first failed attempt")
	fs.IntVar(&cfg.Concurrency, "c", cfg.Concurrency, "")
	fs.IntVar(&cfg.Concurrency, "concurrency", cfg.Concurrency, "Parallel downloads (0 uses the platform default)")
	fs.BoolVar(&cfg.Headless, "headless", cfg.Headless, "Run the browser without a window")
	fs.BoolVar(&cfg.Debug, "debug", cfg.Debug, "Debug logging")
	fs.BoolVar(&cfg.Relogin, "relogin", cfg.Relogin, "Log in again after the browser restarts")
	fs.StringVar(&cfg.BrowserBin, "browser", cfg.BrowserBin, "Path to a Chromium binary")
	fs.DurationVar(&cfg.BackoffInitial, "backoff-initial", cfg.BackoffInitial, "First retry delay")
	fs.DurationVar(&cfg.BackoffMax, "backoff-max", cfg.BackoffMax, "Retry delay cap")
	fs.StringVar(&cfg.StatusAddr, "status-addr", cfg.StatusAddr, "Serve /health, /status and /metrics on this address")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "Log format: text or json")
	fs.StringVar(configPath, "config", "", "YAML config file")

	fs.Usage = func() { printUsage(fs, out) }
	return fs
}

func printUsage(fs *flag.FlagSet, out io.Writer) {
	fmt.Fprintf(out, "Usage: course-archive [options] COURSE_URL\n\n")
	fmt.Fprintf(out, "Options:\n")
	fs.VisitAll(func(f *flag.Flag) {
		if f.Usage == "" {
			return
		}
		fmt.Fprintf(out, "  --%-16s %s", f.Name, f.Usage)
		if f.DefValue != "" && f.DefValue != "0" && f.DefValue != "false" {
			fmt.Fprintf(out, " (default %s)", f.DefValue)
		}
		fmt.Fprintln(out)
	})
	fmt.Fprintf(out, "\nShort forms: -u -p -o -f -d -r -c\n")
	fmt.Fprintf(out, "Environment: ARCHIVE_COURSE_URL, ARCHIVE_USER, ARCHIVE_PASSWORD, ... and ARCHIVE_CONFIG\n")
}
