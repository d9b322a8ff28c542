// Package usecases imports subscriber dumps exported from the previous bot database.
package usecases

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	apperrors "github.com/channelgate/channelgate/internal/shared/errors"
)

// LegacyUserRow is one line of users_<volume>.csv.
type LegacyUserRow struct {
	LegacyID           string
	TelegramUserID     string
	FirstName          string
	Active             bool
	RegistrationNudged bool
	// CreatedAt is zero when the dump has no value.
	CreatedAt time.Time
}

// LegacySubscriptionRow is one line of subs_<volume>.csv.
type LegacySubscriptionRow struct {
	LegacyUserID        string
	StartDate           time.Time
	EndDate             time.Time
	Active              bool
	InviteLink          string
	ReminderSent        bool
	LastDayReminderSent bool
	ExpiredReminderSent bool
	PaymentChargeID     string
}

// LegacyVolume is one users/subs file pair. Legacy user ids are only unique within a
// volume.
type LegacyVolume struct {
	Label         string
	Users         []LegacyUserRow
	Subscriptions []LegacySubscriptionRow
}

// ReadLegacyDump loads every users_*.csv in dir with its subs_*.csv companion, ordered by
// volume label. A volume without a subscriptions file only contributes users.
func ReadLegacyDump(dir string) ([]LegacyVolume, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "users_*.csv"))
	if err != nil {
		return nil, fmt.Errorf("failed to list dump files: %w", err)
	}
	if len(paths) == 0 {
		return nil, apperrors.NewValidationError("no users_*.csv files found", dir)
	}
	sort.Strings(paths)

	volumes := make([]LegacyVolume, 0, len(paths))
	for _, usersPath := range paths {
		label := strings.TrimSuffix(strings.TrimPrefix(filepath.Base(usersPath), "users_"), ".csv")
		vol := LegacyVolume{Label: label}

		if vol.Users, err = readCSVFile(usersPath, ParseLegacyUsers); err != nil {
			return nil, err
		}

		subsPath := filepath.Join(dir, "subs_"+label+".csv")
		vol.Subscriptions, err = readCSVFile(subsPath, ParseLegacySubscriptions)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		volumes = append(volumes, vol)
	}
	return volumes, nil
}

func readCSVFile[T any](path string, parse func(io.Reader) ([]T, error)) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	rows, err := parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return rows, nil
}

// ParseLegacyUsers decodes a users dump with a header line.
func ParseLegacyUsers(r io.Reader) ([]LegacyUserRow, error) {
	var rows []LegacyUserRow
	err := eachRecord(r, []string{"id", "telegram_user_id"}, func(rec record) error {
		created, err := parsePGTimeOptional(rec.get("created_at"))
		if err != nil {
			return err
		}
		rows = append(rows, LegacyUserRow{
			LegacyID:           rec.get("id"),
			TelegramUserID:     rec.get("telegram_user_id"),
			FirstName:          rec.get("first_name"),
			Active:             parsePGBool(rec.getOr("is_active", "t")),
			RegistrationNudged: parsePGBool(rec.get("first_start_reminder_sent")),
			CreatedAt:          created,
		})
		return nil
	})
	return rows, err
}

// ParseLegacySubscriptions decodes a subscriptions dump with a header line.
func ParseLegacySubscriptions(r io.Reader) ([]LegacySubscriptionRow, error) {
	var rows []LegacySubscriptionRow
	err := eachRecord(r, []string{"user_id", "start_date", "end_date"}, func(rec record) error {
		start, err := parsePGTime(rec.get("start_date"))
		if err != nil {
			return fmt.Errorf("start_date: %w", err)
		}
		end, err := parsePGTime(rec.get("end_date"))
		if err != nil {
			return fmt.Errorf("end_date: %w", err)
		}
		rows = append(rows, LegacySubscriptionRow{
			LegacyUserID:        rec.get("user_id"),
			StartDate:           start,
			EndDate:             end,
			Active:              parsePGBool(rec.get("is_active")),
			InviteLink:          rec.get("invite_link"),
			ReminderSent:        parsePGBool(rec.get("reminder_sent")),
			LastDayReminderSent: parsePGBool(rec.get("last_day_reminder_sent")),
			ExpiredReminderSent: parsePGBool(rec.get("expired_reminder_sent")),
			PaymentChargeID:     rec.get("provider_payment_charge_id"),
		})
		return nil
	})
	return rows, err
}

type record struct {
	header map[string]int
	fields []string
}

func (r record) get(column string) string {
	return r.getOr(column, "")
}

func (r record) getOr(column, fallback string) string {
	i, ok := r.header[column]
	if !ok || i >= len(r.fields) {
		return fallback
	}
	return strings.TrimSpace(r.fields[i])
}

func eachRecord(r io.Reader, required []string, fn func(record) error) error {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	head, err := reader.Read()
	if err == io.EOF {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read header: %w", err)
	}
	header := make(map[string]int, len(head))
	for i, name := range head {
		header[strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))] = i
	}
	for _, col := range required {
		if _, ok := header[col]; !ok {
			return apperrors.NewValidationError("missing column", col)
		}
	}

	for {
		fields, err := reader.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read record: %w", err)
		}
		line, _ := reader.FieldPos(0)
		if err := fn(record{header: header, fields: fields}); err != nil {
			return apperrors.NewValidationError(fmt.Sprintf("line %d", line), err.Error())
		}
	}
}

// pgTimeLayouts cover the text forms psql \copy emits for timestamp and timestamptz.
var pgTimeLayouts = []string{
	"2006-01-02 15:04:05.999999999-07",
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	time.RFC3339Nano,
	"2006-01-02",
}

// parsePGTime reads a PostgreSQL timestamp. Values without an offset are UTC.
func parsePGTime(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, errors.New("empty timestamp")
	}
	for _, layout := range pgTimeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", value)
}

func parsePGTimeOptional(value string) (time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return time.Time{}, nil
	}
	return parsePGTime(value)
}

// parsePGBool accepts PostgreSQL's t/f as well as the usual spellings.
func parsePGBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "t", "true", "1", "yes", "y":
		return true
	default:
		return false
	}
}
