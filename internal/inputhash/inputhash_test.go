package inputhash

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompute_IsInvariantUnderKeyReordering(t *testing.T) {
	a := []byte(`{"planningReference":"REF-1","employees":[{"employeeId":"E1","rank":"AVSO"}]}`)
	b := []byte(`{"employees":[{"rank":"AVSO","employeeId":"E1"}],"planningReference":"REF-1"}`)

	hashA, err := Compute(a)
	require.NoError(t, err)
	hashB, err := Compute(b)
	require.NoError(t, err)

	assert.Equal(t, hashA, hashB)
	assert.Contains(t, hashA, "sha256:")
}

func TestCompute_IgnoresRuntimeKeys(t *testing.T) {
	withLimit := []byte(`{"planningReference":"REF-1","timeLimit":"30s"}`)
	withoutLimit := []byte(`{"planningReference":"REF-1","timeLimit":"600s"}`)

	hashA, err := Compute(withLimit)
	require.NoError(t, err)
	hashB, err := Compute(withoutLimit)
	require.NoError(t, err)

	assert.Equal(t, hashA, hashB)
}

func TestCompute_IgnoresSolverScoreConfigAndRotationOffsetMode(t *testing.T) {
	raw1 := []byte(`{"planningReference":"REF-1","solverScoreConfig":{"S1":10},"fixedRotationOffset":true}`)
	raw2 := []byte(`{"planningReference":"REF-1","solverScoreConfig":{"S1":99},"fixedRotationOffset":false}`)

	hashA, err := Compute(raw1)
	require.NoError(t, err)
	hashB, err := Compute(raw2)
	require.NoError(t, err)

	assert.Equal(t, hashA, hashB)
}

func TestCompute_DifferentPlanningContentProducesDifferentHash(t *testing.T) {
	a := []byte(`{"planningReference":"REF-1"}`)
	b := []byte(`{"planningReference":"REF-2"}`)

	hashA, err := Compute(a)
	require.NoError(t, err)
	hashB, err := Compute(b)
	require.NoError(t, err)

	assert.NotEqual(t, hashA, hashB)
}

func TestCompute_RejectsInvalidJSON(t *testing.T) {
	_, err := Compute([]byte(`{not valid json`))
	assert.Error(t, err)
}

func TestCompute_NestedObjectKeyOrderDoesNotAffectHash(t *testing.T) {
	a := []byte(`{"a":{"x":1,"y":2},"b":[{"p":1,"q":2}]}`)
	b := []byte(`{"b":[{"q":2,"p":1}],"a":{"y":2,"x":1}}`)

	hashA, err := Compute(a)
	require.NoError(t, err)
	hashB, err := Compute(b)
	require.NoError(t, err)

	assert.Equal(t, hashA, hashB)
}
