package dto

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunRequestValidate(t *testing.T) {
	valid := RunRequest{Clusters: []ClusterRequest{{Id: "c1", NoteIds: []string{"a"}}}}
	assert.NoError(t, valid.Validate())
	assert.NoError(t, RunRequest{}.Validate())

	missingId := RunRequest{Clusters: []ClusterRequest{{NoteIds: []string{"a"}}}}
	err := missingId.Validate()
	require.Error(t, err)
	var verrs validator.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Equal(t, "required", verrs[0].Tag())

	negative := RunRequest{Clusters: []ClusterRequest{{Id: "c1", LinkDensity: -0.1}}}
	assert.Error(t, negative.Validate())
}
