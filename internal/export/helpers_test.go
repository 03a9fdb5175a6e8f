package export

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"zenexport/internal/domain"
	"zenexport/internal/testutil"
)

var testWindow = domain.NewTimeWindow(
	time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
	time.Date(2024, 5, 1, 2, 0, 0, 0, time.UTC),
)

var rawLogs = []string{
	`{"id":101,"url":"/api/v2/tickets","user_id":1,"timestamp":"2024-05-01T00:10:00Z","ip_address":"10.0.0.1","method":"GET","status":200}`,
	`{"id":102,"url":"/api/v2/users","user_id":2,"timestamp":"2024-05-01T00:20:00Z","ip_address":"10.0.0.2","method":"POST","status":201}`,
	`{"id":103,"url":"/api/v2/search?q=a&b","user_id":99,"timestamp":"2024-05-01T00:30:00Z","ip_address":"10.0.0.3","method":"GET","status":404}`,
}

func decodeLogs(t *testing.T) []domain.AccessLog {
	t.Helper()
	out := make([]domain.AccessLog, 0, len(rawLogs))
	for _, r := range rawLogs {
		l, err := domain.DecodeAccessLog(json.RawMessage(r))
		require.NoError(t, err)
		out = append(out, l)
	}
	return out
}

func testUsers() *testutil.MockUserResolver {
	return &testutil.MockUserResolver{
		ResolveFn: func(context.Context, []string) (*domain.Directory, error) {
			return domain.NewDirectory([]domain.User{
				{ID: 1, Name: "Ann Admin", Email: "ann@example.com", Role: domain.RoleAdmin},
				{ID: 2, Name: "Al Agent", Email: "al@example.com", Role: domain.RoleAgent},
			}), nil
		},
	}
}

func testSource(t *testing.T) *testutil.MockAccessLogSource {
	return &testutil.MockAccessLogSource{
		FetchFn: func(context.Context, domain.TimeWindow) ([]domain.AccessLog, error) {
			// Fresh records on every call, as each cycle re-fetches.
			return decodeLogs(t), nil
		},
	}
}
