package core

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{name: "iso date", in: "2024-02-29", want: "2024-02-29"},
		{name: "padded", in: " 2024-03-01 ", want: "2024-03-01"},
		{name: "rfc3339", in: "2024-03-01T10:11:12Z", want: "2024-03-01"},
		{name: "sqlite datetime", in: "2024-03-01 10:11:12", want: "2024-03-01"},
		{name: "not a date", in: "01/03/2024", wantErr: true},
		{name: "impossible day", in: "2023-02-29", wantErr: true},
		{name: "empty", in: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDate(tt.in)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseDate() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr {
				assert.Equal(t, tt.want, got.String())
			}
		})
	}
}

func TestDate_Scan(t *testing.T) {
	var d Date

	assert.NoError(t, d.Scan("2024-05-06"))
	assert.Equal(t, "2024-05-06", d.String())

	assert.NoError(t, d.Scan([]byte("2024-05-07")))
	assert.Equal(t, "2024-05-07", d.String())

	assert.NoError(t, d.Scan(time.Date(2024, 5, 8, 23, 0, 0, 0, time.UTC)))
	assert.Equal(t, "2024-05-08", d.String())

	assert.NoError(t, d.Scan(nil))
	assert.True(t, d.IsZero())

	assert.Error(t, d.Scan(42))
	assert.Error(t, d.Scan("garbage"))
}

func TestPeriod(t *testing.T) {
	p, err := ParsePeriod("2024-01")
	assert.NoError(t, err)
	assert.Equal(t, Period{Year: 2024, Month: time.January}, p)
	assert.Equal(t, "2024-01", p.String())

	assert.Equal(t, "2023-12", p.AddMonths(-1).String())
	assert.Equal(t, "2025-01", p.AddMonths(12).String())
	assert.True(t, p.AddMonths(-1).Before(p))
	assert.False(t, p.Before(p))
	assert.True(t, Period{Year: 2023, Month: time.December}.Before(p))

	_, err = ParsePeriod("2024-13")
	assert.Error(t, err)
	_, err = ParsePeriod("2024/01")
	assert.Error(t, err)

	b, err := json.Marshal(struct {
		P Period `json:"p"`
		Z Period `json:"z"`
	}{P: p})
	assert.NoError(t, err)
	assert.JSONEq(t, `{"p":"2024-01","z":null}`, string(b))

	var got Period
	assert.NoError(t, json.Unmarshal([]byte(`"2024-07"`), &got))
	assert.Equal(t, "2024-07", got.String())
}

func TestTimestamp_Scan(t *testing.T) {
	tests := []struct {
		name    string
		src     interface{}
		want    time.Time
		wantErr bool
	}{
		{name: "time", src: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), want: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)},
		{name: "rfc3339", src: "2024-01-02T03:04:05Z", want: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)},
		{name: "sqlite current_timestamp", src: []byte("2024-01-02 03:04:05"), want: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)},
		{name: "garbage", src: "yesterday", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ts Timestamp
			err := ts.Scan(tt.src)
			if (err != nil) != tt.wantErr {
				t.Errorf("Timestamp.Scan() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr {
				assert.True(t, tt.want.Equal(ts.Time), "got %v, want %v", ts.Time, tt.want)
			}
		})
	}
}

func TestPercentage(t *testing.T) {
	assert.Equal(t, 0.0, Percentage(3, 0))
	assert.Equal(t, 33.33, Percentage(1, 3))
	assert.Equal(t, 66.67, Percentage(2, 3))
	assert.Equal(t, 100.0, Percentage(4, 4))
	assert.Equal(t, 2.5, Round(2.45, 1))
}
