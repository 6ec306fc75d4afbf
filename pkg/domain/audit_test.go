package domain

import (
	"errors"
	"testing"

	"github.com/google/uuid"
)

func TestAuditRecord_Validate(t *testing.T) {
	actor := uuid.New()

	tests := []struct {
		name    string
		record  AuditRecord
		wantErr bool
	}{
		{
			name: "login with full details",
			record: AuditRecord{
				ActorID: &actor, ActorLabel: "alice@example.com", EventKind: EventLogin,
				Description: "login", Outcome: OutcomeSuccess, ClientAddress: "10.0.0.1",
			},
		},
		{
			name: "login without actor id",
			record: AuditRecord{
				ActorLabel: "alice@example.com", EventKind: EventLogin,
				Description: "login", Outcome: OutcomeSuccess, ClientAddress: "10.0.0.1",
			},
			wantErr: true,
		},
		{
			name: "anonymous login failure",
			record: AuditRecord{
				ActorLabel: "ghost@example.com", EventKind: EventLoginFailure,
				Description: "unknown identity", Outcome: OutcomeFail, ClientAddress: "10.0.0.1",
			},
		},
		{
			name: "login failure without client address",
			record: AuditRecord{
				ActorLabel: "ghost@example.com", EventKind: EventLoginFailure,
				Description: "unknown identity", Outcome: OutcomeFail,
			},
			wantErr: true,
		},
		{
			name: "access denied without label",
			record: AuditRecord{
				EventKind: EventAccessDenied, Description: "denied",
				Outcome: OutcomeFail, ClientAddress: "10.0.0.1",
			},
			wantErr: true,
		},
		{
			name: "change password needs actor only",
			record: AuditRecord{
				ActorID: &actor, EventKind: EventChangePassword,
				Description: "password changed", Outcome: OutcomeSuccess,
			},
		},
		{
			name: "missing description",
			record: AuditRecord{
				ActorID: &actor, EventKind: EventLogout, Outcome: OutcomeSuccess,
			},
			wantErr: true,
		},
		{
			name: "unknown outcome",
			record: AuditRecord{
				ActorID: &actor, EventKind: EventLogout, Description: "bye", Outcome: "done",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.record.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrAuditRecordInvalid) {
				t.Errorf("error %v should wrap ErrAuditRecordInvalid", err)
			}
		})
	}
}
