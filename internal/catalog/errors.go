package catalog

import (
	"errors"
	"fmt"
)

// Level names the list a fetch was populating.
type Level string

const (
	LevelBrands  Level = "brands"
	LevelModels  Level = "models"
	LevelTypes   Level = "types"
	LevelEngines Level = "engines"
	LevelStages  Level = "stages"
)

// ErrFetchFailed matches every *FetchError.
var ErrFetchFailed = errors.New("fetch failed")

// FetchError reports that the child list for one level could not be loaded,
// whatever the cause (network, status code, malformed body).
type FetchError struct {
	Level Level
	Err   error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Level, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

func (e *FetchError) Is(target error) bool { return target == ErrFetchFailed }
