package gatehouse_test

import (
	"testing"

	gatehouse "github.com/gatehouselabs/go-gatehouse"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestHasUserUUID(t *testing.T) {
	t.Run("uuid subject", func(t *testing.T) {
		session := &gatehouse.SessionObject{
			UserID: uuid.NewString(),
		}

		assert.True(t, gatehouse.HasUserUUID(session))
	})

	t.Run("opaque external subject", func(t *testing.T) {
		session := &gatehouse.SessionObject{
			UserID: "idp|1234567890",
		}

		assert.False(t, gatehouse.HasUserUUID(session))
	})

	t.Run("empty subject", func(t *testing.T) {
		session := &gatehouse.SessionObject{}

		assert.False(t, gatehouse.HasUserUUID(session))
	})

	t.Run("nil session", func(t *testing.T) {
		assert.False(t, gatehouse.HasUserUUID(nil))
	})
}
