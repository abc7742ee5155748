package cmd

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/vibast-solutions/ms-go-contact/app/entity"
	"github.com/vibast-solutions/ms-go-contact/app/repository"
)

func TestEventLogHandlerLogsAndArchives(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	logger, hook := test.NewNullLogger()
	occurredAt := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	ev := entity.OperatorEvent{Event: "contact.submission.unsent", Detail: map[string]string{"name": "Ada"}, OccurredAt: occurredAt}

	mock.ExpectExec("INSERT INTO operator_events").
		WithArgs("contact.submission.unsent", `{"name":"Ada"}`, occurredAt).
		WillReturnResult(sqlmock.NewResult(1, 1))

	handler := eventLogHandler(logger, repository.NewOperatorEventRepository(db))
	if err := handler(context.Background(), ev); err != nil {
		t.Fatalf("handler: %v", err)
	}

	entry := hook.LastEntry()
	if entry == nil || entry.Data["event"] != "contact.submission.unsent" || entry.Data["detail.name"] != "Ada" {
		t.Fatalf("unexpected log entry %+v", entry)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestEventLogHandlerWithoutArchive(t *testing.T) {
	t.Parallel()

	logger, hook := test.NewNullLogger()
	handler := eventLogHandler(logger, nil)
	if err := handler(context.Background(), entity.OperatorEvent{Event: "contact.submission.unsent"}); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if len(hook.AllEntries()) != 1 {
		t.Fatalf("expected one log entry, got %d", len(hook.AllEntries()))
	}
}
