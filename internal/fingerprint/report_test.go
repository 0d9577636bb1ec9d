package fingerprint

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"intake/pkg/domain"
)

func TestBuildReportEmpty(t *testing.T) {
	require.Nil(t, BuildReport(nil))
	require.False(t, BuildReport(nil).Suspicious())
}

func TestBuildReportGroupsAndOverflow(t *testing.T) {
	var matches []Match
	for i := 0; i < 5; i++ {
		matches = append(matches, Match{
			Type: MatchNetworkAddress,
			Fingerprint: &Fingerprint{
				ID:           domain.NewFingerprintID(),
				RespondentID: domain.RespondentID(fmt.Sprintf("r-%d", i)),
				CreatedAt:    time.Now(),
			},
		})
	}
	matches = append(matches, Match{
		Type: MatchCanvasHash,
		Fingerprint: &Fingerprint{
			ID:           domain.NewFingerprintID(),
			RespondentID: "r-canvas",
		},
		Session: &SessionInfo{RespondentHandle: "handle", RespondentName: "Name"},
	})

	report := BuildReport(matches)
	require.True(t, report.Suspicious())
	require.Len(t, report.Groups, 2)

	network := report.Groups[0]
	require.Equal(t, MatchNetworkAddress, network.Type)
	require.Equal(t, 5, network.Total)
	require.Len(t, network.Samples, 3)
	require.Equal(t, 2, network.Overflow)

	canvas := report.Groups[1]
	require.Equal(t, MatchCanvasHash, canvas.Type)
	require.Equal(t, 1, canvas.Total)
	require.Zero(t, canvas.Overflow)
	require.Equal(t, "handle", canvas.Samples[0].RespondentHandle)
	require.Equal(t, "Name", canvas.Samples[0].RespondentName)
}
