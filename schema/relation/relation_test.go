package relation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestKind(t *testing.T) {
	t.Run("String", func(t *testing.T) {
		assert.Equal(t, "has_one", KindHasOne.String())
		assert.Equal(t, "has_many", KindHasMany.String())
		assert.Equal(t, "belongs_to", KindBelongsTo.String())
		assert.Equal(t, "polymorphic", KindPolymorphic.String())
	})

	t.Run("Singular", func(t *testing.T) {
		assert.True(t, KindHasOne.Singular())
		assert.True(t, KindBelongsTo.Singular())
		assert.False(t, KindHasMany.Singular())
		assert.False(t, KindPolymorphic.Singular())
	})
}

func TestBuilder(t *testing.T) {
	t.Run("HasMany", func(t *testing.T) {
		d := HasMany("posts").Build()
		assert.Equal(t, "posts", d.Name)
		assert.Equal(t, KindHasMany, d.Kind)
	})

	t.Run("BelongsTo", func(t *testing.T) {
		d := BelongsTo("author").Model("user").Build()
		assert.Equal(t, KindBelongsTo, d.Kind)
		assert.Equal(t, "user", d.Model)
	})

	t.Run("Polymorphic", func(t *testing.T) {
		d := Polymorphic("comments", "commentable_type").Build()
		assert.Equal(t, KindPolymorphic, d.Kind)
		assert.Equal(t, "commentable_type", d.TypeColumn)
	})

	t.Run("Overrides", func(t *testing.T) {
		d := HasOne("profile").
			Table("user_profiles").
			LocalKey("uid").
			ForeignKey("owner_id").
			InverseOf("user").
			CacheTTL(time.Minute).
			Build()
		assert.Equal(t, "user_profiles", d.Table)
		assert.Equal(t, "uid", d.LocalKey)
		assert.Equal(t, "owner_id", d.ForeignKey)
		assert.Equal(t, "user", d.InverseOf)
		assert.Equal(t, time.Minute, d.CacheTTL)
	})
}
