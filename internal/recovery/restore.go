package recovery

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"modbot/internal/modules/audit"
	"modbot/internal/storage"

	"github.com/goccy/go-json"
	"go.uber.org/zap"
)

type Mode string

const (
	ModeFull    Mode = "full"
	ModePartial Mode = "partial"
)

func ParseMode(value string) (Mode, bool) {
	switch Mode(strings.ToLower(strings.TrimSpace(value))) {
	case ModeFull:
		return ModeFull, true
	case ModePartial:
		return ModePartial, true
	}
	return "", false
}

// maxReportedErrors caps the errors listed in the security report.
const maxReportedErrors = 5

// CLIOperator is recorded as the operator of restores started without one.
const CLIOperator = "cli"

type Request struct {
	GuildID    string
	Mode       Mode
	Preview    bool
	OperatorID string
}

// Result describes a restore. Success is false only when the restore
// could not start; per-entity failures are listed in Errors.
type Result struct {
	Success          bool
	RolesRestored    int
	ChannelsRestored int
	Errors           []string

	// Preview counts of stored backup rows.
	RoleBackups    int
	ChannelBackups int
}

// Restore recreates roles and, in full mode, channels from the most
// recent backup row of each entity. Entities that still exist are left
// alone and nothing already created is rolled back.
func (m *Manager) Restore(ctx context.Context, req Request) Result {
	log := m.logger.With(zap.String("guild_id", req.GuildID), zap.String("mode", string(req.Mode)))

	if req.Preview {
		roles, channels, err := m.store.CountBackups(ctx, req.GuildID)
		if err != nil {
			return Result{Errors: []string{fmt.Sprintf("count backups: %v", err)}}
		}
		return Result{Success: true, RoleBackups: roles, ChannelBackups: channels}
	}

	guild, err := m.platform.FetchGuild(ctx, req.GuildID)
	if err != nil {
		log.Warn("restore aborted", zap.Error(err))
		return Result{Errors: []string{fmt.Sprintf("fetch guild: %v", err)}}
	}
	roleRows, err := m.store.ListRoleBackups(ctx, req.GuildID)
	if err != nil {
		log.Warn("restore aborted", zap.Error(err))
		return Result{Errors: []string{fmt.Sprintf("load role backups: %v", err)}}
	}

	res := Result{Success: true}
	roleIDs := m.restoreRoles(ctx, log, req, guild, roleRows, &res)

	if req.Mode != ModePartial {
		channelRows, err := m.store.ListChannelBackups(ctx, req.GuildID)
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("load channel backups: %v", err))
		} else {
			m.restoreChannels(ctx, log, req, guild, channelRows, roleIDs, &res)
		}
	}

	restoredCount.WithLabelValues("role").Add(float64(res.RolesRestored))
	restoredCount.WithLabelValues("channel").Add(float64(res.ChannelsRestored))
	restoreErrors.Add(float64(len(res.Errors)))
	log.Info("restore finished",
		zap.Int("roles", res.RolesRestored),
		zap.Int("channels", res.ChannelsRestored),
		zap.Int("errors", len(res.Errors)),
	)
	m.report(ctx, log, req, res)
	return res
}

// restoreRoles returns the old to new id mapping of every role it created.
func (m *Manager) restoreRoles(ctx context.Context, log *zap.Logger, req Request, guild GuildState, rows []storage.RoleBackup, res *Result) map[string]string {
	live := make(map[string]struct{}, len(guild.Roles))
	for _, r := range guild.Roles {
		live[r.ID] = struct{}{}
	}

	created := make(map[string]string)
	var positions []RolePosition
	for _, row := range latestRoles(rows) {
		if _, ok := live[row.RoleID]; ok {
			continue
		}
		role := Role{
			ID:           row.RoleID,
			Name:         row.Name,
			Color:        row.Color,
			Position:     row.Position,
			Permissions:  row.Permissions,
			Hoist:        row.Hoist,
			Mentionable:  row.Mentionable,
			Icon:         row.Icon,
			UnicodeEmoji: row.UnicodeEmoji,
		}
		if req.Mode == ModePartial && !role.Critical() {
			continue
		}
		if err := m.limiter.Wait(ctx); err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("role %s: %v", row.Name, err))
			return created
		}
		newID, err := m.platform.CreateRole(ctx, req.GuildID, role)
		if err != nil {
			log.Debug("role restore failed", zap.String("role_id", row.RoleID), zap.Error(err))
			res.Errors = append(res.Errors, fmt.Sprintf("role %s: %v", row.Name, err))
			continue
		}
		created[row.RoleID] = newID
		positions = append(positions, RolePosition{ID: newID, Position: row.Position})
		res.RolesRestored++
	}
	if len(positions) == 0 {
		return created
	}

	if err := m.limiter.Wait(ctx); err != nil {
		res.Errors = append(res.Errors, fmt.Sprintf("role order: %v", err))
		return created
	}
	if err := m.platform.ReorderRoles(ctx, req.GuildID, positions); err != nil {
		log.Debug("role reorder failed", zap.Error(err))
		res.Errors = append(res.Errors, fmt.Sprintf("role order: %v", err))
	}
	return created
}

func (m *Manager) restoreChannels(ctx context.Context, log *zap.Logger, req Request, guild GuildState, rows []storage.ChannelBackup, roleIDs map[string]string, res *Result) {
	live := make(map[string]struct{}, len(guild.Channels))
	for _, c := range guild.Channels {
		live[c.ID] = struct{}{}
	}

	var categories, others []storage.ChannelBackup
	for _, row := range latestChannels(rows) {
		if _, ok := live[row.ChannelID]; ok {
			continue
		}
		if row.Type == ChannelCategory {
			categories = append(categories, row)
		} else {
			others = append(others, row)
		}
	}

	parents := make(map[string]string)
	for _, row := range categories {
		if newID, ok := m.restoreChannel(ctx, log, req.GuildID, row, "", roleIDs, res); ok {
			parents[row.ChannelID] = newID
		}
	}
	for _, row := range others {
		parentID := ""
		if row.ParentID != "" {
			if newID, ok := parents[row.ParentID]; ok {
				parentID = newID
			} else if _, ok := live[row.ParentID]; ok {
				parentID = row.ParentID
			}
		}
		if _, ok := m.restoreChannel(ctx, log, req.GuildID, row, parentID, roleIDs, res); !ok && ctx.Err() != nil {
			return
		}
	}
}

func (m *Manager) restoreChannel(ctx context.Context, log *zap.Logger, guildID string, row storage.ChannelBackup, parentID string, roleIDs map[string]string, res *Result) (string, bool) {
	var overwrites []Overwrite
	if row.PermissionOverwrites != "" {
		if err := json.Unmarshal([]byte(row.PermissionOverwrites), &overwrites); err != nil {
			log.Debug("channel overwrites unreadable", zap.String("channel_id", row.ChannelID), zap.Error(err))
		}
	}

	if err := m.limiter.Wait(ctx); err != nil {
		res.Errors = append(res.Errors, fmt.Sprintf("channel %s: %v", row.Name, err))
		return "", false
	}
	newID, err := m.platform.CreateChannel(ctx, guildID, Channel{
		ID:               row.ChannelID,
		Name:             row.Name,
		Type:             row.Type,
		Position:         row.Position,
		ParentID:         parentID,
		Topic:            row.Topic,
		NSFW:             row.NSFW,
		RateLimitPerUser: row.RateLimitPerUser,
		Bitrate:          row.Bitrate,
		UserLimit:        row.UserLimit,
	})
	if err != nil {
		log.Debug("channel restore failed", zap.String("channel_id", row.ChannelID), zap.Error(err))
		res.Errors = append(res.Errors, fmt.Sprintf("channel %s: %v", row.Name, err))
		return "", false
	}
	res.ChannelsRestored++

	for _, ow := range overwrites {
		if ow.Type == OverwriteRole {
			if mapped, ok := roleIDs[ow.ID]; ok {
				ow.ID = mapped
			}
		}
		if err := m.platform.SetPermissionOverwrite(ctx, newID, ow); err != nil {
			log.Debug("permission overwrite not restored",
				zap.String("channel_id", newID),
				zap.String("target_id", ow.ID),
				zap.Error(err),
			)
		}
	}
	return newID, true
}

func (m *Manager) report(ctx context.Context, log *zap.Logger, req Request, res Result) {
	metadata := map[string]any{
		"mode":              string(req.Mode),
		"roles_restored":    res.RolesRestored,
		"channels_restored": res.ChannelsRestored,
		"errors":            len(res.Errors),
	}
	if len(res.Errors) > 0 {
		metadata["error_list"] = res.Errors
	}
	moderator, operator := req.OperatorID, "<@"+req.OperatorID+">"
	if req.OperatorID == "" {
		moderator, operator = CLIOperator, CLIOperator
	}
	caseNumber, err := m.cases.CreateCase(ctx, storage.NewCase{
		GuildID:     req.GuildID,
		TargetID:    req.GuildID,
		ModeratorID: moderator,
		Action:      "restore",
		Reason:      fmt.Sprintf("Server restore (%s)", req.Mode),
		Metadata:    metadata,
	})
	if err != nil {
		log.Warn("restore case not recorded", zap.Error(err))
	}

	level := audit.LevelWarn
	if len(res.Errors) > 0 {
		level = audit.LevelCrit
	}
	report := audit.SecurityReport{
		Level:       level,
		Title:       "Server restore completed",
		Description: fmt.Sprintf("Restored %d roles and %d channels.", res.RolesRestored, res.ChannelsRestored),
		Fields: []audit.Field{
			{Name: "Mode", Value: string(req.Mode)},
			{Name: "Operator", Value: operator},
			{Name: "Errors", Value: fmt.Sprintf("%d", len(res.Errors))},
		},
	}
	if caseNumber > 0 {
		report.Fields = append(report.Fields, audit.Field{Name: "Case", Value: fmt.Sprintf("#%d", caseNumber)})
	}
	report.Lines = firstErrors(res.Errors)
	m.security.Security(ctx, req.GuildID, report)
}

func firstErrors(errs []string) []string {
	if len(errs) > maxReportedErrors {
		return errs[:maxReportedErrors]
	}
	return errs
}

// latestRoles keeps the newest row per role, ordered by position. rows
// arrive newest first.
func latestRoles(rows []storage.RoleBackup) []storage.RoleBackup {
	seen := make(map[string]struct{}, len(rows))
	out := make([]storage.RoleBackup, 0, len(rows))
	for _, row := range rows {
		if _, ok := seen[row.RoleID]; ok {
			continue
		}
		seen[row.RoleID] = struct{}{}
		out = append(out, row)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out
}

func latestChannels(rows []storage.ChannelBackup) []storage.ChannelBackup {
	seen := make(map[string]struct{}, len(rows))
	out := make([]storage.ChannelBackup, 0, len(rows))
	for _, row := range rows {
		if _, ok := seen[row.ChannelID]; ok {
			continue
		}
		seen[row.ChannelID] = struct{}{}
		out = append(out, row)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out
}
