package identity

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmcleod/carepoint/internal/clock"
	"github.com/jmcleod/carepoint/session"
	"github.com/jmcleod/carepoint/storage/memory"
)

var testStart = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

type fakeFetcher struct {
	gotID   string
	profile session.Payload
	err     error
}

func (f *fakeFetcher) FetchProfile(_ context.Context, patientID string) (session.Payload, error) {
	f.gotID = patientID
	return f.profile, f.err
}

func newTestState(t *testing.T, opts ...Option) (*State, *memory.Store, *clock.Fake) {
	t.Helper()
	store := memory.NewStore()
	clk := clock.NewFake(testStart)
	logger := slog.New(slog.DiscardHandler)
	codecOpts := []session.Option{session.WithClock(clk), session.WithLogger(logger)}
	opts = append([]Option{WithLogger(logger)}, opts...)
	return NewFromStore(store, codecOpts, opts...), store, clk
}

func TestLoadSessionPriority(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestState(t)

	require.True(t, s.otp.Save(ctx, session.Payload{"name": "FromOTP"}))
	require.True(t, s.login.Save(ctx, session.Payload{"token": "t", "user": map[string]any{"name": "FromLogin"}}))
	require.True(t, s.user.Save(ctx, session.Payload{"name": "FromUser"}))

	v := s.LoadSession(ctx)
	assert.Equal(t, "FromOTP", v.Name)
	assert.Equal(t, SourceOTP, v.Source)
	assert.True(t, v.IsLoggedIn)

	require.True(t, s.otp.Clear(ctx))
	v = s.LoadSession(ctx)
	assert.Equal(t, "FromLogin", v.Name)
	assert.Equal(t, SourceLogin, v.Source)

	require.True(t, s.login.Clear(ctx))
	v = s.LoadSession(ctx)
	assert.Equal(t, "FromUser", v.Name)
	assert.Equal(t, SourceUser, v.Source)
	assert.False(t, v.IsAuthenticated)

	require.True(t, s.user.Clear(ctx))
	v = s.LoadSession(ctx)
	assert.Equal(t, DefaultView(), v)
	assert.Equal(t, "User", v.Name)
	assert.Nil(t, v.PatientID)
	assert.False(t, v.IsLoggedIn)
}

func TestLoadSessionSkipsExpired(t *testing.T) {
	ctx := context.Background()
	s, _, clk := newTestState(t)

	require.True(t, s.otp.Save(ctx, session.Payload{"name": "Stale"}))
	clk.Advance(session.DefaultTTL + time.Millisecond)
	require.True(t, s.login.Save(ctx, session.Payload{"token": "t", "name": "Fresh"}))

	v := s.LoadSession(ctx)
	assert.Equal(t, "Fresh", v.Name)
	assert.Equal(t, SourceLogin, v.Source)
}

func TestLoadSessionSkipsCorrupt(t *testing.T) {
	ctx := context.Background()
	s, store, _ := newTestState(t)
	require.NoError(t, store.Set(ctx, session.KeyOTPResponse, "{not json"))
	require.True(t, s.user.Save(ctx, session.Payload{"name": "Fallback"}))

	assert.Equal(t, "Fallback", s.LoadSession(ctx).Name)
}

func TestSaveOTPSessionAndLogout(t *testing.T) {
	ctx := context.Background()
	s, store, _ := newTestState(t)

	require.NoError(t, s.SaveOTPSession(ctx, session.Payload{"id": 51, "name": "Arun", "phone_number": "8122839500"}))
	assert.True(t, s.IsUserLoggedIn(ctx))

	v := s.View()
	assert.Equal(t, "Arun", v.Name)
	assert.Equal(t, "8122839500", v.Phone)
	require.NotNil(t, v.PatientID)
	assert.Equal(t, "51", *v.PatientID)
	assert.True(t, v.IsAuthenticated)
	assert.Equal(t, "2025-03-01T09:00:00.000Z", v.LoginTime)

	require.NoError(t, s.Logout(ctx))
	assert.False(t, s.IsUserLoggedIn(ctx))
	assert.Equal(t, DefaultView(), s.View())

	for _, key := range []string{session.KeyOTPResponse, session.KeyLoginResponse, session.KeyUserData} {
		_, err := store.Get(ctx, key)
		assert.Error(t, err, key)
	}
	keys, err := store.Keys(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestSaveOTPSessionFailureKeepsView(t *testing.T) {
	ctx := context.Background()
	s, store, _ := newTestState(t)
	require.NoError(t, s.SaveUserData(ctx, session.Payload{"name": "Before"}))

	store.SetFault(func(op, key string) error {
		if op == "set" {
			return errors.New("disk full")
		}
		return nil
	})
	err := s.SaveOTPSession(ctx, session.Payload{"name": "After"})
	require.Error(t, err)
	assert.Equal(t, session.StorageWrite, session.KindOf(err))
	assert.Equal(t, "Before", s.View().Name)
}

func TestLogoutIsIndependent(t *testing.T) {
	ctx := context.Background()
	s, store, _ := newTestState(t)
	require.NoError(t, s.SaveOTPSession(ctx, session.Payload{"name": "A"}))
	require.NoError(t, s.SaveLoginSession(ctx, session.Payload{"token": "t", "name": "A"}))
	require.NoError(t, s.SaveUserData(ctx, session.Payload{"name": "A"}))

	store.SetFault(func(op, key string) error {
		if op == "remove" && key == session.KeyLoginResponse {
			return errors.New("locked")
		}
		return nil
	})
	err := s.Logout(ctx)
	require.Error(t, err)
	assert.Equal(t, session.StorageWrite, session.KindOf(err))
	assert.Equal(t, DefaultView(), s.View())

	store.SetFault(nil)
	_, err = store.Get(ctx, session.KeyOTPResponse)
	assert.Error(t, err)
	_, err = store.Get(ctx, session.KeyUserData)
	assert.Error(t, err)
	_, err = store.Get(ctx, session.KeyLoginResponse)
	assert.NoError(t, err, "the failed clear is not rolled back or retried")
}

func TestUpdateProfileField(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestState(t)

	err := s.UpdateProfileField(ctx, "name", "Nobody")
	assert.Equal(t, session.NotFound, session.KindOf(err))

	require.NoError(t, s.SaveLoginSession(ctx, session.Payload{"token": "t", "user": map[string]any{"name": "Arun", "city": "Chennai"}}))
	require.NoError(t, s.UpdateProfileField(ctx, "name", "Arun K"))

	v := s.View()
	assert.Equal(t, "Arun K", v.Name)
	assert.Equal(t, "Chennai", v.Profile["city"])
	assert.Equal(t, "Arun K", s.login.Profile(ctx)["name"])
	assert.Nil(t, s.otp.Load(ctx))
}

func TestRefreshProfile(t *testing.T) {
	ctx := context.Background()

	t.Run("identifier from view", func(t *testing.T) {
		f := &fakeFetcher{profile: session.Payload{"patient_id": "51", "name": "Arun Kumar", "city": "Chennai"}}
		s, _, _ := newTestState(t, WithFetcher(f))
		require.NoError(t, s.SaveOTPSession(ctx, session.Payload{"id": 51, "name": "Arun"}))

		require.NoError(t, s.RefreshProfile(ctx))
		assert.Equal(t, "51", f.gotID)
		v := s.View()
		assert.Equal(t, "Arun Kumar", v.Name)
		assert.Empty(t, v.Error)
		assert.Equal(t, "Chennai", s.Profile(session.ProjectionOptions{}).Location)
	})

	t.Run("identifier from store", func(t *testing.T) {
		f := &fakeFetcher{profile: session.Payload{"name": "Bala"}}
		s, _, _ := newTestState(t, WithFetcher(f))
		require.True(t, s.user.Save(ctx, session.Payload{"patientId": "88"}))

		require.NoError(t, s.RefreshProfile(ctx))
		assert.Equal(t, "88", f.gotID)
		require.NotNil(t, s.View().PatientID)
		assert.Equal(t, "88", *s.View().PatientID)
	})

	t.Run("identifier from token claim", func(t *testing.T) {
		tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "77"}).SignedString([]byte("test-key"))
		require.NoError(t, err)
		f := &fakeFetcher{profile: session.Payload{"name": "Chitra"}}
		s, _, _ := newTestState(t, WithFetcher(f))
		require.True(t, s.login.Save(ctx, session.Payload{"token": tok, "user": map[string]any{"name": "Chitra"}}))

		require.NoError(t, s.RefreshProfile(ctx))
		assert.Equal(t, "77", f.gotID)
	})

	t.Run("missing identifier", func(t *testing.T) {
		f := &fakeFetcher{}
		s, _, _ := newTestState(t, WithFetcher(f))
		err := s.RefreshProfile(ctx)
		assert.Equal(t, session.MissingIdentifier, session.KindOf(err))
		assert.NotEmpty(t, s.View().Error)
		assert.Empty(t, f.gotID)
	})

	t.Run("fetch failure keeps view", func(t *testing.T) {
		f := &fakeFetcher{err: &session.Error{Kind: session.NetworkFailure, Op: "fetch profile"}}
		s, _, _ := newTestState(t, WithFetcher(f))
		require.NoError(t, s.SaveOTPSession(ctx, session.Payload{"id": 51, "name": "Arun"}))

		err := s.RefreshProfile(ctx)
		assert.Equal(t, session.NetworkFailure, session.KindOf(err))
		v := s.View()
		assert.Equal(t, "Arun", v.Name)
		assert.True(t, v.IsLoggedIn)
		assert.Contains(t, v.Error, "network failure")
	})
}

func TestProfileProjection(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestState(t)
	assert.Equal(t, session.DefaultName, s.Profile(session.ProjectionOptions{}).Name)

	require.NoError(t, s.SaveOTPSession(ctx, session.Payload{"name": "Arun", "profile_image": "img/a.jpg"}))
	got := s.Profile(session.ProjectionOptions{ImageBaseURL: "https://X/"})
	assert.Equal(t, "Arun", got.Name)
	assert.Equal(t, "https://X/img/a.jpg", got.ProfileImage)
}

func TestSessionInfo(t *testing.T) {
	ctx := context.Background()
	s, _, clk := newTestState(t)

	source, info := s.SessionInfo(ctx)
	assert.Equal(t, SourceNone, source)
	assert.Nil(t, info)

	require.NoError(t, s.SaveUserData(ctx, session.Payload{"name": "Arun"}))
	_, info = s.SessionInfo(ctx)
	assert.Nil(t, info, "user data has no validity window")

	require.NoError(t, s.SaveLoginSession(ctx, session.Payload{"token": "t"}))
	clk.Advance(90 * time.Minute)
	source, info = s.SessionInfo(ctx)
	assert.Equal(t, SourceLogin, source)
	require.NotNil(t, info)
	assert.Equal(t, 90, info.ElapsedMinutes)
	assert.Equal(t, 22*60+30, info.RemainingMinutes)

	clk.Advance(session.DefaultTTL)
	source, info = s.SessionInfo(ctx)
	assert.Equal(t, SourceUser, source, "user data is still active")
	assert.Nil(t, info)

	require.True(t, s.user.Clear(ctx))
	source, info = s.SessionInfo(ctx)
	assert.Equal(t, SourceLogin, source)
	require.NotNil(t, info)
	assert.True(t, info.IsExpired)
	assert.Equal(t, 0, info.RemainingMinutes)
}

func TestSessionInfoFollowsActiveRecord(t *testing.T) {
	ctx := context.Background()
	s, _, clk := newTestState(t)

	require.NoError(t, s.SaveOTPSession(ctx, session.Payload{"id": 51, "name": "Arun"}))
	clk.Advance(session.DefaultTTL + time.Minute)
	require.NoError(t, s.SaveLoginSession(ctx, session.Payload{"token": "t", "user": map[string]any{"name": "Arun"}}))

	assert.True(t, s.IsUserLoggedIn(ctx))
	source, info := s.SessionInfo(ctx)
	assert.Equal(t, SourceLogin, source)
	require.NotNil(t, info)
	assert.False(t, info.IsExpired)
	assert.Equal(t, "24h remaining", session.FormatRemaining(info))
}

type logoutFetcher struct {
	state   *State
	profile session.Payload
}

func (f *logoutFetcher) FetchProfile(ctx context.Context, _ string) (session.Payload, error) {
	if err := f.state.Logout(ctx); err != nil {
		return nil, err
	}
	return f.profile, nil
}

func TestRefreshProfileAfterLogoutIsDiscarded(t *testing.T) {
	ctx := context.Background()
	f := &logoutFetcher{profile: session.Payload{"patient_id": "51", "name": "Arun Kumar"}}
	s, store, _ := newTestState(t, WithFetcher(f))
	f.state = s
	require.NoError(t, s.SaveOTPSession(ctx, session.Payload{"id": 51, "name": "Arun"}))

	err := s.RefreshProfile(ctx)
	assert.Equal(t, session.NotFound, session.KindOf(err))

	v := s.View()
	assert.Equal(t, DefaultView(), v)
	assert.Equal(t, session.DefaultName, s.Profile(session.ProjectionOptions{}).Name)
	keys, err := store.Keys(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)
}
