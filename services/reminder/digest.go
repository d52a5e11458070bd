package remindersvc

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"

	"github.com/trezcool/tuition/core"
	"github.com/trezcool/tuition/core/debt"
	"github.com/trezcool/tuition/services/export"
)

var nowFunc = time.Now // mockable

// OverdueReporter produces the overdue report.
type OverdueReporter interface {
	OverdueStudents(ctx context.Context) ([]debt.OverdueRecord, error)
}

type Digest struct {
	Total    int
	Warning  int
	Critical int
	File     string // written spreadsheet, empty when exports are off
	Emailed  int    // recipients the digest was sent to
}

// Service runs the overdue digest on a cron schedule.
type Service struct {
	reporter   OverdueReporter
	mailer     core.EmailService
	logger     core.Logger
	schedule   string
	exportDir  string
	recipients []string
	loc        *time.Location
	cron       *cron.Cron
}

// NewService builds the digest service. mailer may be nil, in which case no email is sent.
func NewService(reporter OverdueReporter, mailer core.EmailService, logger core.Logger, conf *core.Config) *Service {
	loc := conf.Location()
	return &Service{
		reporter:   reporter,
		mailer:     mailer,
		logger:     logger,
		schedule:   conf.Reminder.Schedule,
		exportDir:  conf.Reminder.ExportDir,
		recipients: conf.Reminder.Recipients,
		loc:        loc,
		cron:       cron.New(cron.WithLocation(loc)),
	}
}

// Start schedules the digest and starts the scheduler in its own goroutine.
func (svc *Service) Start() error {
	if _, err := svc.cron.AddFunc(svc.schedule, svc.run); err != nil {
		return errors.Wrapf(err, "scheduling overdue digest %q", svc.schedule)
	}
	svc.cron.Start()
	svc.logger.Info("overdue digest scheduled", map[string]interface{}{"schedule": svc.schedule})
	return nil
}

// Stop stops the scheduler and waits for a running digest to finish, or for ctx to be done.
func (svc *Service) Stop(ctx context.Context) {
	select {
	case <-svc.cron.Stop().Done():
	case <-ctx.Done():
	}
}

func (svc *Service) run() {
	if _, err := svc.RunDigest(context.Background()); err != nil {
		svc.logger.Error("overdue digest failed", err)
	}
}

// RunDigest computes the overdue report and logs one warning per debtor.
// When an export directory is configured the report is saved there,
// and when recipients are configured it is emailed to them.
func (svc *Service) RunDigest(ctx context.Context) (Digest, error) {
	records, err := svc.reporter.OverdueStudents(ctx)
	if err != nil {
		return Digest{}, errors.Wrap(err, "computing overdue report")
	}

	var dg Digest
	for _, r := range records {
		dg.Total++
		if r.Severity == debt.SeverityCritical {
			dg.Critical++
		} else {
			dg.Warning++
		}
		svc.logger.Warn("student overdue", map[string]interface{}{
			"student_id":       r.ID,
			"fullname":         r.Fullname,
			"phone_number":     r.PhoneNumber,
			"days_overdue":     r.DaysOverdue,
			"remaining_amount": r.RemainingAmount.String(),
			"severity":         r.Severity,
		})
	}

	emailing := svc.mailer != nil && len(svc.recipients) > 0 && dg.Total > 0
	if svc.exportDir != "" || emailing {
		var buf bytes.Buffer
		if err = exportsvc.WriteOverdue(&buf, records); err != nil {
			return dg, err
		}
		filename := "overdue_" + nowFunc().In(svc.loc).Format("20060102") + ".xlsx"

		if svc.exportDir != "" {
			if dg.File, err = svc.save(filename, buf.Bytes()); err != nil {
				return dg, err
			}
		}
		if emailing {
			if dg.Emailed, err = svc.email(ctx, dg, filename, buf.Bytes()); err != nil {
				return dg, err
			}
		}
	}

	svc.logger.Info("overdue digest", map[string]interface{}{
		"total":    dg.Total,
		"warning":  dg.Warning,
		"critical": dg.Critical,
		"file":     dg.File,
		"emailed":  dg.Emailed,
	})
	return dg, nil
}

func (svc *Service) save(filename string, content []byte) (string, error) {
	if err := os.MkdirAll(svc.exportDir, 0o755); err != nil {
		return "", errors.Wrap(err, "creating export directory")
	}
	path := filepath.Join(svc.exportDir, filename)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return "", errors.Wrap(err, "writing export file")
	}
	return path, nil
}

func (svc *Service) email(ctx context.Context, dg Digest, filename string, content []byte) (int, error) {
	to, err := core.ParseAddresses(svc.recipients)
	if err != nil {
		return 0, errors.Wrap(err, "parsing digest recipients")
	}

	msg := core.EmailMessage{
		To:      to,
		Subject: fmt.Sprintf("%d overdue students", dg.Total),
		Body: fmt.Sprintf(
			"%d students are overdue on %s: %d warning, %d critical.\nThe full report is attached.",
			dg.Total, nowFunc().In(svc.loc).Format(core.DateLayout), dg.Warning, dg.Critical,
		),
	}
	msg.Attach(content, filename, exportsvc.ContentType)

	if err = svc.mailer.Send(ctx, msg); err != nil {
		return 0, errors.Wrap(err, "emailing overdue digest")
	}
	return len(to), nil
}
