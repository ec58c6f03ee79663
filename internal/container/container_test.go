package container

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCgroupResolver_ContainerName_NoSuchPID(t *testing.T) {
	r := NewCgroupResolver()
	assert.Equal(t, "", r.ContainerName(1<<30))
}

func TestCgroupIDPattern_MatchesDockerScope(t *testing.T) {
	line := "0::/system.slice/docker-abcdef0123456789abcdef0123456789abcdef0123456789abcdef0123456789.scope"
	id := cgroupIDPattern.FindString(line)
	assert.Equal(t, "abcdef0123456789abcdef0123456789abcdef0123456789abcdef0123456789", id)
}
