package mailer

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/wneessen/go-mail"

	"dealwatch/config"
	"dealwatch/models"
)

func TestGreeting(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"ankit.rakhecha@example.com", "Ankit"},
		{"rishi_singh@example.com", "Rishi"},
		{"farul.1@example.com", "Farul"},
		{"madison@example.com", "Madison"},
		{"MADISON@example.com", "Madison"},
		{"a@example.com", "A"},
	}
	for _, tc := range cases {
		if got := Greeting(tc.in); got != tc.want {
			t.Fatalf("Greeting(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func testMailer() *Mailer {
	return New(&config.MailConfig{
		Host:     "smtp.example.com",
		Port:     587,
		Username: "reports@example.com",
		Password: "secret",
		FromName: "Deal Performance Manager",
		Brand:    "DealWatch",
	})
}

func TestBody(t *testing.T) {
	bundle := models.NewReportBundle()
	bundle.Add("deal_type", models.ChangeRecord{DealID: "D1"})
	bundle.Add("dealstage",
		models.ChangeRecord{DealID: "D1"},
		models.ChangeRecord{DealID: "D2"},
	)

	body := testMailer().body("jane.doe@example.com", bundle, "Daily")

	if !strings.Contains(body, "Hi Jane,") {
		t.Fatalf("body missing greeting: %s", body)
	}
	if !strings.Contains(body, "daily summary") {
		t.Fatalf("body missing lowercased label: %s", body)
	}
	if !strings.Contains(body, "Deal Type changes: 1") {
		t.Fatalf("body missing type count: %s", body)
	}
	if !strings.Contains(body, "Deal Stage changes: 2") {
		t.Fatalf("body missing stage count: %s", body)
	}
	if !strings.Contains(body, "Expected Close Date changes: 0") {
		t.Fatalf("body missing close date count: %s", body)
	}
}

func TestSendReport_RetryThenSwallow(t *testing.T) {
	old := sendRetryDelay
	sendRetryDelay = time.Millisecond
	defer func() { sendRetryDelay = old }()

	m := testMailer()
	attempts := 0
	m.send = func(ctx context.Context, msg *mail.Msg) error {
		attempts++
		return errors.New("transport down")
	}

	bundle := models.NewReportBundle()
	csvs := map[string][]byte{"deal_type": nil, "dealstage": nil, "expected_close_date": nil}
	recipients := []string{"a@example.com", "b@example.com"}

	sent, failed := m.SendReport(context.Background(), csvs, bundle, 0, "Daily", recipients)
	if sent != 0 || failed != 2 {
		t.Fatalf("expected 0 sent / 2 failed, got %d / %d", sent, failed)
	}
	// One retry per recipient, then give up.
	if attempts != 4 {
		t.Fatalf("expected 4 send attempts, got %d", attempts)
	}
}

func TestSendReport_SecondAttemptSucceeds(t *testing.T) {
	old := sendRetryDelay
	sendRetryDelay = time.Millisecond
	defer func() { sendRetryDelay = old }()

	m := testMailer()
	attempts := 0
	m.send = func(ctx context.Context, msg *mail.Msg) error {
		attempts++
		if attempts == 1 {
			return errors.New("blip")
		}
		return nil
	}

	bundle := models.NewReportBundle()
	csvs := map[string][]byte{"deal_type": nil, "dealstage": nil, "expected_close_date": nil}

	sent, failed := m.SendReport(context.Background(), csvs, bundle, 0, "Daily", []string{"a@example.com"})
	if sent != 1 || failed != 0 {
		t.Fatalf("expected 1 sent / 0 failed, got %d / %d", sent, failed)
	}
}

func TestSendReport_CancelledMidRetryCountsRemainder(t *testing.T) {
	old := sendRetryDelay
	sendRetryDelay = time.Minute
	defer func() { sendRetryDelay = old }()

	ctx, cancel := context.WithCancel(context.Background())

	m := testMailer()
	m.send = func(ctx context.Context, msg *mail.Msg) error {
		cancel()
		return errors.New("transport down")
	}

	bundle := models.NewReportBundle()
	csvs := map[string][]byte{"deal_type": nil, "dealstage": nil, "expected_close_date": nil}
	recipients := []string{"a@example.com", "b@example.com", "c@example.com"}

	sent, failed := m.SendReport(ctx, csvs, bundle, 0, "Daily", recipients)
	if sent != 0 {
		t.Fatalf("expected 0 sent, got %d", sent)
	}
	if failed != 3 {
		t.Fatalf("expected all 3 recipients counted as failed on shutdown, got %d", failed)
	}
}

func TestCompose(t *testing.T) {
	bundle := models.NewReportBundle()
	csvs := map[string][]byte{
		"deal_type":           []byte("Deal ID\n"),
		"dealstage":           []byte("Deal ID\n"),
		"expected_close_date": []byte("Deal ID\n"),
	}

	msg, err := testMailer().compose("jane.doe@example.com", csvs, bundle, 42, "Daily")
	if err != nil {
		t.Fatalf("compose failed: %v", err)
	}

	if got := len(msg.GetAttachments()); got != 3 {
		t.Fatalf("expected 3 attachments, got %d", got)
	}

	subjects := msg.GetGenHeader("Subject")
	if len(subjects) != 1 {
		t.Fatalf("expected 1 subject header, got %d", len(subjects))
	}
	if want := "DealWatch | Daily Deal Property Change Report (42 deals monitored)"; subjects[0] != want {
		t.Fatalf("subject = %q, want %q", subjects[0], want)
	}
}
