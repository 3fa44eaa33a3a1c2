package fixtures

import (
	"github.com/todo-manager/api-contract-tests/apiclient"
	"github.com/todo-manager/api-contract-tests/servicedef"

	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"
)

// Service is the part of the HTTP facade that fixture operations use. *apiclient.Client
// implements it.
type Service interface {
	List(kind servicedef.Kind) ([]ldvalue.Value, error)
	Create(kind servicedef.Kind, body ldvalue.Value) (ldvalue.Value, error)
	CreateWithID(kind servicedef.Kind, id string, body ldvalue.Value) (ldvalue.Value, error)
	Post(path string, body *apiclient.Body) (*apiclient.Response, error)
	Delete(path string) (*apiclient.Response, error)
}

var _ Service = (*apiclient.Client)(nil)
