package cmd

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/creativeprojects/go-selfupdate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUpdater struct {
	found     bool
	detectErr error
	lookups   int
	updated   bool
}

func (f *fakeUpdater) DetectLatest(context.Context, selfupdate.Repository) (*selfupdate.Release, bool, error) {
	f.lookups++
	return nil, f.found, f.detectErr
}

func (f *fakeUpdater) UpdateTo(context.Context, *selfupdate.Release, string) error {
	f.updated = true
	return nil
}

func withFakeUpdater(t *testing.T, f *fakeUpdater) {
	t.Helper()
	original := newReleaseUpdater
	newReleaseUpdater = func() (releaseUpdater, error) { return f, nil }
	t.Cleanup(func() { newReleaseUpdater = original })

	originalVersion := rootCmd.Version
	rootCmd.Version = "1.2.0"
	t.Cleanup(func() { rootCmd.Version = originalVersion })
}

func runSelfUpdateCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append([]string{"self-update"}, args...))
	err := rootCmd.Execute()
	return out.String(), err
}

func TestNewSelfUpdateCmd(t *testing.T) {
	c := newSelfUpdateCmd()
	assert.Equal(t, "self-update", c.Use)
	assert.NotEmpty(t, c.Short)
	assert.NotNil(t, c.Flags().Lookup("check"))
}

func TestRunSelfUpdate_DevelopmentBuilds(t *testing.T) {
	originalVersion := rootCmd.Version
	defer func() { rootCmd.Version = originalVersion }()

	for _, v := range []string{"dev", ""} {
		rootCmd.Version = v
		err := runSelfUpdate(nil, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cannot self-update a development build")
	}
}

func TestRunSelfUpdate_LookupFailures(t *testing.T) {
	t.Run("lookup error", func(t *testing.T) {
		f := &fakeUpdater{detectErr: errors.New("rate limited")}
		withFakeUpdater(t, f)

		_, err := runSelfUpdateCmd(t, "--check", "-q")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to look up releases: rate limited")
		assert.Equal(t, 1, f.lookups)
		assert.False(t, f.updated)
	})

	t.Run("no release", func(t *testing.T) {
		f := &fakeUpdater{}
		withFakeUpdater(t, f)

		_, err := runSelfUpdateCmd(t, "-q")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no release of stockdesk/stockdesk found")
		assert.False(t, f.updated)
	})
}
