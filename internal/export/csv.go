package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/sadopc/tasklist/internal/store"
)

func ToCSV(tasks []store.Task, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{"ID", "Title", "Description", "Status", "Created", "Created (ms)"}); err != nil {
		return err
	}

	for _, t := range tasks {
		row := []string{
			strconv.FormatInt(t.ID, 10),
			t.Title,
			t.Description,
			t.Status.String(),
			t.CreatedAt().Local().Format(time.RFC3339),
			strconv.FormatInt(t.CreationDate, 10),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}
