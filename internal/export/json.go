package export

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/sadopc/tasklist/internal/store"
)

// jsonExport is the document shape shared by the JSON and YAML exports.
type jsonExport struct {
	ExportedAt string     `json:"exported_at" yaml:"exported_at"`
	Count      int        `json:"count" yaml:"count"`
	Tasks      []jsonTask `json:"tasks" yaml:"tasks"`
}

type jsonTask struct {
	ID           int64  `json:"id" yaml:"id"`
	Title        string `json:"title" yaml:"title"`
	Description  string `json:"description,omitempty" yaml:"description,omitempty"`
	Status       string `json:"status" yaml:"status"`
	Created      string `json:"created" yaml:"created"`
	CreationDate int64  `json:"creation_date_ms" yaml:"creation_date_ms"`
}

func newExport(tasks []store.Task) jsonExport {
	export := jsonExport{
		ExportedAt: time.Now().UTC().Format(time.RFC3339),
		Count:      len(tasks),
	}

	for _, t := range tasks {
		export.Tasks = append(export.Tasks, jsonTask{
			ID:           t.ID,
			Title:        t.Title,
			Description:  t.Description,
			Status:       t.Status.String(),
			Created:      t.CreatedAt().Local().Format(time.RFC3339),
			CreationDate: t.CreationDate,
		})
	}
	return export
}

func ToJSON(tasks []store.Task, path string) error {
	data, err := json.MarshalIndent(newExport(tasks), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write json file: %w", err)
	}
	return nil
}
