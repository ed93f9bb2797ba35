package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mmeshcher/orderload-system/internal/model"
)

// FileRepository хранит контрольную точку в JSON-файле. Используется, когда
// база данных не сконфигурирована.
type FileRepository struct {
	path string
}

// NewFileRepository создаёт файловое хранилище контрольной точки по указанному пути.
func NewFileRepository(path string) *FileRepository {
	return &FileRepository{path: path}
}

// Close ничего не делает: файл не держится открытым между операциями.
func (r *FileRepository) Close() error {
	return nil
}

// Load возвращает сохранённую контрольную точку. Отсутствующий файл означает
// нулевое состояние.
func (r *FileRepository) Load(_ context.Context) (model.RunState, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return model.RunState{}, nil
		}
		return model.RunState{}, fmt.Errorf("read state file: %w", err)
	}

	var state model.RunState
	if err := json.Unmarshal(data, &state); err != nil {
		return model.RunState{}, fmt.Errorf("decode state file: %w", err)
	}

	return state, nil
}

// Save перезаписывает контрольную точку. Запись идёт во временный файл с
// последующим переименованием, чтобы незавершённая запись не портила состояние.
func (r *FileRepository) Save(_ context.Context, index int) error {
	data, err := json.Marshal(model.RunState{LastProcessedIndex: index})
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}

	dir := filepath.Dir(r.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(r.path)+".tmp")
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close state file: %w", err)
	}

	if err := os.Rename(tmp.Name(), r.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace state file: %w", err)
	}

	return nil
}
