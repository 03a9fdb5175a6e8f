package zendesk

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"zenexport/internal/domain"
	"zenexport/internal/logging"
)

// Resource names, used both as the endpoint path and the response list key.
const (
	UsersResource      = "users"
	AccessLogsResource = "access_logs"
)

// Filter query parameters of the access_logs endpoint.
const (
	FilterStartParam = "filter[start]"
	FilterEndParam   = "filter[end]"
	RoleParam        = "role[]"
)

// Service resolves users and lists access logs.
type Service struct {
	fetcher *Fetcher
}

// NewService creates a Service backed by fetcher.
func NewService(fetcher *Fetcher) *Service {
	return &Service{fetcher: fetcher}
}

// ResolveUsers fetches every user holding one of roles and indexes them by ID.
func (s *Service) ResolveUsers(ctx context.Context, roles []string) (*domain.Directory, error) {
	logger := logging.FromContext(ctx, s.fetcher.logger)
	logger.Info("Querying users with roles (" + strings.Join(roles, ",") + ")")

	params := url.Values{}
	for _, r := range roles {
		params.Add(RoleParam, r)
	}
	params.Set(domain.PageSizeParam, strconv.Itoa(domain.UsersPageSize))

	raw, err := s.fetcher.FetchAll(ctx, UsersResource, s.fetcher.client.ResourceURL(UsersResource), params)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	users := make([]domain.User, 0, len(raw))
	for i, r := range raw {
		var u domain.User
		if err := json.Unmarshal(r, &u); err != nil {
			return nil, fmt.Errorf("decode user %d: %w", i, err)
		}
		users = append(users, u)
	}
	dir := domain.NewDirectory(users)
	logger.Debug("resolved user directory", "users", dir.Len())
	return dir, nil
}

// FetchAccessLogs lists every access log recorded within w.
func (s *Service) FetchAccessLogs(ctx context.Context, w domain.TimeWindow) ([]domain.AccessLog, error) {
	logger := logging.FromContext(ctx, s.fetcher.logger)
	logger.Info(fmt.Sprintf("Querying logs from %s to %s", w.StartString(), w.EndString()))

	params := url.Values{}
	params.Set(FilterStartParam, w.StartString())
	params.Set(FilterEndParam, w.EndString())
	params.Set(domain.PageSizeParam, strconv.Itoa(domain.AccessLogsPageSize))

	raw, err := s.fetcher.FetchAll(ctx, AccessLogsResource, s.fetcher.client.ResourceURL(AccessLogsResource), params)
	if err != nil {
		return nil, fmt.Errorf("list access logs: %w", err)
	}

	logs := make([]domain.AccessLog, 0, len(raw))
	for _, r := range raw {
		l, err := domain.DecodeAccessLog(r)
		if err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}
	return logs, nil
}
