package whois

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/kapu/discord-dispatch-bot/internal/config"
	"github.com/kapu/discord-dispatch-bot/internal/emitter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeInteraction struct {
	raw     *discordgo.Interaction
	replies []string
}

func (f *fakeInteraction) Raw() *discordgo.Interaction { return f.raw }
func (f *fakeInteraction) CustomID() string            { return CommandKey }
func (f *fakeInteraction) MessageID() string           { return "" }
func (f *fakeInteraction) UserID() string              { return "u-caller" }

func (f *fakeInteraction) Reply(_ context.Context, content string, _ bool) error {
	f.replies = append(f.replies, content)
	return nil
}

func targetInteraction() *fakeInteraction {
	return &fakeInteraction{raw: &discordgo.Interaction{
		Type: discordgo.InteractionApplicationCommand,
		Data: discordgo.ApplicationCommandInteractionData{
			Name:     CommandKey,
			TargetID: "175928847299117063",
			Resolved: &discordgo.ApplicationCommandInteractionDataResolved{
				Users: map[string]*discordgo.User{
					"175928847299117063": {ID: "175928847299117063", Username: "kapu"},
				},
				Members: map[string]*discordgo.Member{
					"175928847299117063": {Nick: "K", Roles: []string{"r1", "r2"}},
				},
			},
		},
	}}
}

func setup(t *testing.T, settings map[string]config.PluginSettings) *emitter.Emitter {
	t.Helper()
	e := emitter.New(zap.NewNop())
	require.NoError(t, e.Initialize(context.Background(), emitter.Collaborators{
		Plugins: []emitter.Module{New(config.NewPluginConfig(settings), zap.NewNop())},
	}))
	t.Cleanup(func() { _ = e.Close(context.Background()) })
	return e
}

func dispatch(i *fakeInteraction, roles ...string) emitter.Dispatch {
	return emitter.Dispatch{
		Interaction: i,
		Params: emitter.Params{Origin: emitter.Origin{
			GuildID:      "g1",
			ChannelType:  discordgo.ChannelTypeGuildText,
			UserID:       i.UserID(),
			RoleIDs:      roles,
			GuildRoleIDs: []string{"r-mod"},
		}},
	}
}

func TestWhoisDescribesTarget(t *testing.T) {
	e := setup(t, map[string]config.PluginSettings{Name: {Roles: []string{"r-mod"}}})
	i := targetInteraction()

	require.NoError(t, e.Emit(context.Background(), dispatch(i, "r-mod")))

	require.Len(t, i.replies, 1)
	assert.Contains(t, i.replies[0], "<@175928847299117063> (kapu)")
	assert.Contains(t, i.replies[0], "Nickname: K")
	assert.Contains(t, i.replies[0], "Roles: <@&r1>, <@&r2>")
}

func TestWhoisLockedForOtherRoles(t *testing.T) {
	e := setup(t, map[string]config.PluginSettings{Name: {Roles: []string{"r-mod"}}})
	i := targetInteraction()

	require.NoError(t, e.Emit(context.Background(), dispatch(i, "r-member")))
	assert.Equal(t, []string{"You need the <@&r-mod> role to use this."}, i.replies)
}

func TestWhoisIgnoredOutsideGuildChannels(t *testing.T) {
	e := setup(t, nil)
	i := targetInteraction()
	d := dispatch(i)
	d.Params.Origin.ChannelType = discordgo.ChannelTypeDM

	require.NoError(t, e.Emit(context.Background(), d))
	assert.Empty(t, i.replies)
}

func TestDescribe(t *testing.T) {
	user := &discordgo.User{ID: "175928847299117063", Username: "kapu", Bot: true}
	created, err := discordgo.SnowflakeTimestamp(user.ID)
	require.NoError(t, err)

	out := Describe(user, nil)
	assert.Contains(t, out, "Bot account")
	assert.Contains(t, out, "<t:"+itoa(created.Unix())+":R>")
	assert.NotContains(t, out, "Roles")

	joined := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	out = Describe(user, &discordgo.Member{JoinedAt: joined})
	assert.Contains(t, out, "Joined <t:"+itoa(joined.Unix())+":R>")
	assert.Contains(t, out, "Roles: none")
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}
