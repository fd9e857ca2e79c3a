// SPDX-License-Identifier: LGPL-3.0-or-later

package hyperv

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"hyperwarm/hverr"
	"hyperwarm/providers"
)

func TestQuote_EscapesEmbeddedSingleQuotes(t *testing.T) {
	require.Equal(t, `'it''s'`, quote("it's"))
	require.Equal(t, `'plain'`, quote("plain"))
}

func TestValidateName(t *testing.T) {
	require.NoError(t, validateName("vm", "agents-0"))
	require.NoError(t, validateName("vm", "Win11_Template.v2"))
	require.Error(t, validateName("vm", ""))
	require.Error(t, validateName("vm", "agents-0; Remove-VM -Name evil"))
	require.Error(t, validateName("vm", "agents'0"))
}

func TestClassify(t *testing.T) {
	require.Nil(t, classify("start", "v", "", nil))

	cause := errors.New("boom")

	notFound := classify("start", "v", "Cannot find a virtual machine with name 'v'.", cause)
	require.Equal(t, hverr.KindNotFound, hverr.KindOf(notFound))

	perm := classify("start", "v", "Access is denied.", cause)
	require.Equal(t, hverr.KindPermanent, hverr.KindOf(perm))

	timeout := classify("start", "v", "The operation timed out.", cause)
	require.Equal(t, hverr.KindTimeout, hverr.KindOf(timeout))

	transient := classify("start", "v", "The RPC server is unavailable.", cause)
	require.Equal(t, hverr.KindTransient, hverr.KindOf(transient))
}

func TestParseState(t *testing.T) {
	cases := map[string]providers.VMState{
		"Running":    providers.VMStateRunning,
		"Off":        providers.VMStateOff,
		"Saved":      providers.VMStateSaved,
		"Paused":     providers.VMStatePaused,
		"Whatever":   providers.VMStateUnknown,
		"":           providers.VMStateUnknown,
	}
	for raw, want := range cases {
		require.Equal(t, want, parseState(raw), "raw=%q", raw)
	}
}
