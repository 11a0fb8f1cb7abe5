package repository

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"leasing_crm_backend/internal/party/domain"
)

// taskMetadataRow is the JSONB shape of task metadata. Field names match
// what the tasks repository writes.
type taskMetadataRow struct {
	Leases             []uuid.UUID `json:"leases,omitempty"`
	CompletedBy        string      `json:"completedBy,omitempty"`
	ApprovalConditions []string    `json:"approvalConditions,omitempty"`
	InventoryName      string      `json:"inventoryName,omitempty"`
	HoldDepositPayer   string      `json:"holdDepositPayer,omitempty"`
	PersonID           *uuid.UUID  `json:"personId,omitempty"`
}

func scanTasks(rows pgx.Rows) ([]domain.Task, error) {
	var out []domain.Task
	for rows.Next() {
		var (
			t        domain.Task
			name     string
			category string
			state    string
			metadata []byte
		)
		err := rows.Scan(
			&t.ID, &name, &category, &t.PartyID, &t.UserIDs, &state, &t.DueDate, &t.CompletionDate,
			&metadata, &t.Audit.CreatedBy, &t.Audit.OriginalPartyOwner, &t.Audit.OriginalAssignees,
			&t.CreatedAt, &t.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		t.Name = domain.TaskName(name)
		t.Category = domain.TaskCategory(category)
		t.State = domain.TaskState(state)

		var row taskMetadataRow
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &row); err != nil {
				return nil, fmt.Errorf("unmarshal task metadata: %w", err)
			}
		}
		t.Metadata = domain.TaskMetadata{
			Leases:             row.Leases,
			CompletedBy:        row.CompletedBy,
			ApprovalConditions: row.ApprovalConditions,
			InventoryName:      row.InventoryName,
			HoldDepositPayer:   row.HoldDepositPayer,
			PersonID:           zeroIfNil(row.PersonID),
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
