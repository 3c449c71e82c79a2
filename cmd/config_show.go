package main

import (
	"io"
	"net/url"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/adreport-cli/internal/config"
)

const masked = "********"

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration with secrets masked",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return writeConfig(os.Stdout, cfg)
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	rootCmd.AddCommand(configCmd)
}

// writeConfig renders c as YAML with credentials replaced.
func writeConfig(w io.Writer, c *config.Config) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(redact(*c)); err != nil {
		return eris.Wrap(err, "config show: encode")
	}
	return eris.Wrap(enc.Close(), "config show: flush")
}

// redact returns a copy of c that is safe to print.
func redact(c config.Config) config.Config {
	c.Meta.AppSecret = mask(c.Meta.AppSecret)
	c.Meta.AccessToken = mask(c.Meta.AccessToken)
	c.Warehouse.DatabaseURL = redactURL(c.Warehouse.DatabaseURL)
	return c
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	return masked
}

// redactURL hides the password of a connection URL. Values that do not
// parse as a URL are masked whole.
func redactURL(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" {
		return masked
	}
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), masked)
	}
	return u.String()
}
