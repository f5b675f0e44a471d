package shuttle

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRouteKnownService(t *testing.T) {
	suite := testSuite()
	w, err := suite.route("echo", Request{"v": int8(1)})
	require.NoError(t, err)
	require.IsType(t, &stepWorker{}, w)
}

func TestRouteUnknownService(t *testing.T) {
	suite := testSuite()
	_, err := suite.route("nope", nil)
	require.ErrorIs(t, err, ErrServiceNotFound)
}

func TestRegisterLastWriteWins(t *testing.T) {
	suite := NewSuite(func() testState { return testState{} })
	suite.Register("svc", ServiceFunc[testState](func(Request) Worker[testState] { return &slowWorker{} }))
	suite.Register("svc", ServiceFunc[testState](func(Request) Worker[testState] { return &countWorker{} }))

	w, err := suite.route("svc", nil)
	require.NoError(t, err)
	require.IsType(t, &countWorker{}, w)
	require.Equal(t, []string{"svc"}, suite.Names())
}

func TestBuildMintsFreshState(t *testing.T) {
	n := 0
	suite := NewSuite(func() int { n++; return n })
	require.Equal(t, 1, suite.Build())
	require.Equal(t, 2, suite.Build())
}
