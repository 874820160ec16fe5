package plugin

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegisterAndDescribe(t *testing.T) {
	as := assert.New(t)

	var r Registry
	err := r.Register(&Plugin{
		ID:         3,
		Identifier: "com.example.demo",
		Filename:   "/plugins/demo.dll",
		AppDir:     "/data/app/com.example.demo",
		APIVersion: "9.0.0",
	})
	as.NoError(err)

	as.Equal(`"com.example.demo" (demo.dll) (ID: 3)`, r.Describe(3))
	as.Equal("7 (Not Found)", r.Describe(7))
	as.Equal("/data/app/com.example.demo", r.DataDir(3))
	as.Empty(r.DataDir(7))
}

func TestRegisterRejectsBadAPIVersion(t *testing.T) {
	as := assert.New(t)

	var r Registry
	as.Error(r.Register(&Plugin{ID: 1, Identifier: "a", APIVersion: "8.0.0"}))
	as.Error(r.Register(&Plugin{ID: 1, Identifier: "a", APIVersion: "10.1.0"}))
	as.Error(r.Register(&Plugin{ID: 1, Identifier: "a", APIVersion: "not-a-version"}))
	as.NoError(r.Register(&Plugin{ID: 1, Identifier: "a", APIVersion: "9.25.0"}))
}

func TestRegisterRejectsDuplicateID(t *testing.T) {
	as := assert.New(t)

	var r Registry
	as.NoError(r.Register(&Plugin{ID: 1, Identifier: "a", APIVersion: "9.0.0"}))
	as.Error(r.Register(&Plugin{ID: 1, Identifier: "b", APIVersion: "9.0.0"}))

	r.Remove(1)
	as.NoError(r.Register(&Plugin{ID: 1, Identifier: "b", APIVersion: "9.0.0"}))
}
