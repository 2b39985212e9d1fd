package repository

import (
	"fmt"
	"strings"

	"github.com/wirehome/core/pkg/types"
)

// GetFileURI maps an entity uid of the form "<id>@<version>" and a filename
// onto the served repository path:
//
//	GetFileURI("climate@1.0.2", "script.py") → "/repository/climate/1.0.2/script.py"
func GetFileURI(uid, filename string) (string, error) {
	if uid == "" {
		return "", types.InvalidUidError("repository uid")
	}
	if filename == "" {
		return "", types.InvalidUidError("filename")
	}

	id, version, ok := strings.Cut(uid, "@")
	if !ok || id == "" || version == "" {
		return "", fmt.Errorf("%w: repository uid %q must have the form \"<id>@<version>\"", types.ErrInvalidArgument, uid)
	}

	return fmt.Sprintf("/repository/%s/%s/%s", id, version, filename), nil
}
