package toolkit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/windowsadmins/vpndeploy/pkg/config"
	"github.com/windowsadmins/vpndeploy/pkg/deploy"
	"github.com/windowsadmins/vpndeploy/pkg/ui"
)

type fakeDeferrals struct {
	count   int
	cleared bool
}

func (f *fakeDeferrals) Count() int { return f.count }
func (f *fakeDeferrals) Increment() { f.count++ }
func (f *fakeDeferrals) Clear()     { f.cleared = true; f.count = 0 }

// welcomeState records what the welcome seams were asked to do.
type welcomeState struct {
	deferrals  *fakeDeferrals
	prompted   bool
	informed   bool
	closed     bool
	closedSoft bool
	countdown  time.Duration
}

// welcomeKit builds a Kit whose interactive and process seams record into
// the returned state instead of touching the machine.
func welcomeKit(t *testing.T, mode deploy.DeployMode, running bool, choice ui.Choice) (*Kit, *welcomeState) {
	t.Helper()
	kit, err := New(config.GetDefaultConfig(), mode)
	require.NoError(t, err)

	st := &welcomeState{deferrals: &fakeDeferrals{}}
	kit.deferrals = st.deferrals
	kit.anyRunning = func([]string) bool { return running }
	kit.prompt = func(title, text string) ui.Choice {
		st.prompted = true
		return choice
	}
	kit.inform = func(title, text string) { st.informed = true }
	kit.closeProcs = func([]string) error {
		st.closed = true
		return nil
	}
	kit.closeAfter = func(names []string, countdown time.Duration) error {
		st.closedSoft = true
		st.countdown = countdown
		return nil
	}
	return kit, st
}

func TestShowWelcomeNothingRunning(t *testing.T) {
	kit, st := welcomeKit(t, deploy.ModeInteractive, false, ui.ChoiceClose)

	err := kit.ShowWelcome(deploy.WelcomeOptions{
		Processes: []string{"vpnui"}, MaxDeferrals: 3,
	})
	require.NoError(t, err)
	assert.True(t, st.deferrals.cleared)
	assert.False(t, st.prompted)
	assert.False(t, st.closed)
}

func TestShowWelcomeSilentClosesWithoutPrompt(t *testing.T) {
	kit, st := welcomeKit(t, deploy.ModeSilent, true, ui.ChoiceClose)

	err := kit.ShowWelcome(deploy.WelcomeOptions{
		Processes: []string{"vpnui"}, MaxDeferrals: 3,
	})
	require.NoError(t, err)
	assert.False(t, st.prompted)
	assert.True(t, st.closed)
}

func TestShowWelcomeUserCloses(t *testing.T) {
	kit, st := welcomeKit(t, deploy.ModeInteractive, true, ui.ChoiceClose)

	err := kit.ShowWelcome(deploy.WelcomeOptions{
		Processes: []string{"vpnui"}, Countdown: time.Minute, MaxDeferrals: 3,
	})
	require.NoError(t, err)
	assert.True(t, st.prompted)
	assert.True(t, st.closed)
	assert.True(t, st.deferrals.cleared)
}

func TestShowWelcomeUserDefers(t *testing.T) {
	kit, st := welcomeKit(t, deploy.ModeInteractive, true, ui.ChoiceDefer)

	err := kit.ShowWelcome(deploy.WelcomeOptions{
		Processes: []string{"vpnui"}, Countdown: time.Minute, MaxDeferrals: 3,
	})
	require.ErrorIs(t, err, deploy.ErrDeferred)
	assert.Equal(t, 1, st.deferrals.count)
	assert.False(t, st.closed)
}

func TestShowWelcomePromptCountdownExpires(t *testing.T) {
	kit, st := welcomeKit(t, deploy.ModeInteractive, true, ui.ChoiceClose)
	block := make(chan struct{})
	kit.prompt = func(title, text string) ui.Choice {
		st.prompted = true
		<-block
		return ui.ChoiceDefer
	}
	defer close(block)

	// An unattended machine never answers; the countdown must force the
	// closure through anyway.
	err := kit.ShowWelcome(deploy.WelcomeOptions{
		Processes: []string{"vpnui"}, Countdown: 20 * time.Millisecond, MaxDeferrals: 3,
	})
	require.NoError(t, err)
	assert.True(t, st.prompted)
	assert.True(t, st.closed)
	assert.True(t, st.deferrals.cleared)
	assert.Equal(t, 0, st.deferrals.count, "an unanswered prompt is not a deferral")
}

func TestShowWelcomeAllowanceExhausted(t *testing.T) {
	kit, st := welcomeKit(t, deploy.ModeInteractive, true, ui.ChoiceDefer)
	st.deferrals.count = 3

	err := kit.ShowWelcome(deploy.WelcomeOptions{
		Processes: []string{"vpnui"}, Countdown: 5 * time.Minute, MaxDeferrals: 3,
	})
	require.NoError(t, err)
	assert.False(t, st.prompted, "no further deferral is offered")
	assert.True(t, st.informed)
	assert.True(t, st.closedSoft)
	assert.Equal(t, 5*time.Minute, st.countdown)
}

func TestShowWelcomeZeroDeferralsSkipsPrompt(t *testing.T) {
	kit, st := welcomeKit(t, deploy.ModeInteractive, true, ui.ChoiceDefer)

	err := kit.ShowWelcome(deploy.WelcomeOptions{
		Processes: []string{"vpnui"}, Countdown: time.Minute, MaxDeferrals: 0,
	})
	require.NoError(t, err)
	assert.False(t, st.prompted)
	assert.True(t, st.informed)
	assert.True(t, st.closedSoft)
}
