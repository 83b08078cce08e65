package coverletter

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/jonathan/application-agent/internal/agents"
	"github.com/jonathan/application-agent/internal/pipeline"
	"github.com/jonathan/application-agent/internal/state"
)

// NewUserInfoAgent loads the stored profile of the requesting user. Without a
// user store the profile given on the request is used.
func NewUserInfoAgent(d *agents.Deps) pipeline.Stage {
	return pipeline.NewStage(StageUserInfo, nil, []state.Slot{state.SlotDBProfile}, func(ctx context.Context, st state.State) state.State {
		id := st.Inputs.UserID
		if id == "" {
			st.Fail(StageUserInfo, ErrNoUserID)
			return st
		}

		if d.Users == nil {
			p := st.Inputs.Profile
			st.DBProfile = state.Document{
				"user_id":          id,
				"name":             p.Name,
				"email":            p.Email,
				"github_username":  p.GitHubUsername,
				"github_connected": p.GitHubToken != "",
			}
			st.Record(StageUserInfo, "Loaded profile from request")
			return st
		}

		user, err := d.Users.GetUser(ctx, id)
		if err != nil {
			d.Log().Warn("user lookup failed", zap.String("stage", StageUserInfo), zap.String("run_id", st.RunID), zap.Error(err))
			st.DBProfile = state.Document{}
			st.Fail(StageUserInfo, fmt.Errorf("load user: %w", err))
			return st
		}
		if user == nil {
			st.DBProfile = state.Document{}
			st.Fail(StageUserInfo, ErrUserNotFound)
			return st
		}

		st.DBProfile = state.Document{
			"user_id":          user.ID,
			"name":             user.Name,
			"email":            user.Email,
			"github_username":  user.GitHubUsername,
			"github_connected": user.HasGitHub(),
		}
		st.Record(StageUserInfo, "Loaded user profile: "+agents.TextOr(user.Name, user.Email))
		return st
	})
}

func candidateName(st state.State) string {
	if name := st.DBProfile.String("name"); name != "" {
		return name
	}
	return agents.TextOr(st.Inputs.Profile.Name, "the candidate")
}
