package fixtures

import (
	"testing"

	"github.com/todo-manager/api-contract-tests/apiclient"
	"github.com/todo-manager/api-contract-tests/apitest"
	"github.com/todo-manager/api-contract-tests/framework"
	"github.com/todo-manager/api-contract-tests/servicedef"

	"github.com/stretchr/testify/require"
)

func startService(t *testing.T, opts apitest.Options) (*apiclient.Client, *apitest.API) {
	server, api := apitest.NewServer(opts)
	t.Cleanup(server.Close)
	return apiclient.NewClient(server.URL), api
}

// testLogger writes fixture log output through the Go test log.
type testLogger struct{ t *testing.T }

func (l testLogger) Printf(message string, args ...interface{}) { l.t.Logf(message, args...) }

var _ framework.Logger = testLogger{}

func todo(ref, title string, done bool) servicedef.EntityDescriptor {
	return servicedef.EntityDescriptor{
		Ref:   ref,
		Title: title,
		Flags: map[string]bool{servicedef.FieldDoneStatus: done},
	}
}

func mustList(t *testing.T, client *apiclient.Client, kind servicedef.Kind) []string {
	entities, err := client.List(kind)
	require.NoError(t, err)
	return apiclient.IDs(entities)
}
