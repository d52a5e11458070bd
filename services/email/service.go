package emailsvc

import (
	"os"

	"github.com/trezcool/tuition/core"
)

// New returns the sendgrid service when an API key is configured outside debug, the console service otherwise.
func New(conf *core.Config) core.EmailService {
	if conf.Email.SendgridApiKey != "" && !conf.Debug {
		return NewSendgridService(conf)
	}
	return NewConsoleService(conf, os.Stdout)
}
