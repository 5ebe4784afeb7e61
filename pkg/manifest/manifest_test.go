package manifest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepositorySetFromValue(t *testing.T) {
	raw := mustYAML(t, `
rclcpp:
  source:
    type: git
    url: https://github.com/ros2/rclcpp.git
    version: rolling
  release:
    url: https://github.com/ros2-gbp/rclcpp-release.git
    version: 28.1.0-1
    packages:
      - rclcpp
      - rclcpp_action
      - rclcpp_lifecycle
docs_only:
  doc:
    type: git
    url: https://github.com/ros2/docs.git
    version: main
bare: {}
`)

	set, err := repositorySetFromValue(raw)
	require.NoError(t, err)
	assert.Equal(t, []string{"rclcpp", "docs_only", "bare"}, set.Names())

	rclcpp := set.Get("rclcpp")
	require.NotNil(t, rclcpp)
	require.NotNil(t, rclcpp.Source)
	assert.Equal(t, "git", rclcpp.Source.Type)
	assert.Equal(t, "rolling", rclcpp.Source.Version)
	require.NotNil(t, rclcpp.Release)
	assert.Equal(t, "https://github.com/ros2-gbp/rclcpp-release.git", rclcpp.Release.URL)
	assert.Equal(t, []string{"rclcpp", "rclcpp_action", "rclcpp_lifecycle"}, rclcpp.Release.Packages)

	// source preferred, doc is the fallback, neither means not clone-able
	assert.Equal(t, rclcpp.Source, rclcpp.CloneLocation())
	assert.Equal(t, set.Get("docs_only").Doc, set.Get("docs_only").CloneLocation())
	assert.Nil(t, set.Get("bare").CloneLocation())
}

func TestRepositorySetFromValueRejectsNonMapping(t *testing.T) {
	_, err := repositorySetFromValue(NewScalar("nope"))
	assert.Error(t, err)
}

func TestEntryFromValueToleratesMalformedBlocks(t *testing.T) {
	raw := mustYAML(t, `
source: not-a-mapping
doc: [1, 2]
release:
  url: https://example.com/release.git
  packages: not-a-sequence
`)

	entry := entryFromValue("weird", raw)
	assert.Nil(t, entry.Source)
	assert.Nil(t, entry.Doc)
	require.NotNil(t, entry.Release)
	assert.Empty(t, entry.Release.Packages)
}

func TestRepositorySetAddReplaces(t *testing.T) {
	set := NewRepositorySet()
	set.Add(&Entry{Name: "a"})
	set.Add(&Entry{Name: "b"})
	set.Add(&Entry{Name: "a", Source: &Location{URL: "u"}})

	assert.Equal(t, []string{"a", "b"}, set.Names())
	assert.Equal(t, "u", set.Get("a").Source.URL)
	assert.True(t, set.Has("b"))
	assert.False(t, set.Has("c"))
}
