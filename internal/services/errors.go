package services

import (
	"net/http"

	apierrors "fermcli/internal/errors"
)

// ErrSheetsDisabled is returned for sheet analyses when no Sheets client is configured.
var ErrSheetsDisabled = apierrors.New(http.StatusServiceUnavailable, "SHEETS_DISABLED", "Google Sheets source is not configured")
