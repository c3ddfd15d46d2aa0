package database

import (
	"testing"

	modelspkg "promptlime/internal/models"

	"github.com/stretchr/testify/require"
)

func TestPersistentModels_IncludesModerationAndInbox(t *testing.T) {
	var hasReport, hasNotification bool
	for _, model := range PersistentModels() {
		switch model.(type) {
		case *modelspkg.Report:
			hasReport = true
		case *modelspkg.Notification:
			hasNotification = true
		}
	}
	require.True(t, hasReport, "PersistentModels should include Report")
	require.True(t, hasNotification, "PersistentModels should include Notification")
}
