package redis_test

import (
	"context"
	"testing"

	"github.com/goto/salt/log"
	"github.com/goto/sieve/core/view"
	sieveredis "github.com/goto/sieve/internal/store/redis"
	"github.com/goto/sieve/internal/testutils"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"
)

type ViewRepositoryTestSuite struct {
	suite.Suite
	ctx        context.Context
	client     *redis.Client
	repository *sieveredis.ViewRepository
}

func (r *ViewRepositoryTestSuite) SetupSuite() {
	r.ctx = context.TODO()

	addr, err := testutils.RunTestRedis(r.T(), log.NewNoop())
	testutils.SkipIfNoDocker(r.T(), err)
	if err != nil {
		r.T().Fatal(err)
	}

	r.client, err = sieveredis.NewClient(r.ctx, sieveredis.Config{Addr: addr})
	if err != nil {
		r.T().Fatal(err)
	}
	r.repository = sieveredis.NewViewRepository(r.client, "test")
}

func (r *ViewRepositoryTestSuite) TearDownSuite() {
	if r.client != nil {
		r.NoError(r.client.Close())
	}
}

func (r *ViewRepositoryTestSuite) TearDownTest() {
	r.NoError(r.client.FlushDB(r.ctx).Err())
}

func (r *ViewRepositoryTestSuite) TestGet() {
	r.Run("return ErrNotFound if key was never written", func() {
		_, err := r.repository.Get(r.ctx, view.DefaultKey)
		r.ErrorIs(err, view.ErrNotFound)
	})
}

func (r *ViewRepositoryTestSuite) TestPut() {
	r.Run("write under the prefixed key", func() {
		r.Require().NoError(r.repository.Put(r.ctx, view.DefaultKey, []byte("blob")))

		raw, err := r.client.Get(r.ctx, "test:"+view.DefaultKey).Result()
		r.Require().NoError(err)
		r.Equal("blob", raw)

		got, err := r.repository.Get(r.ctx, view.DefaultKey)
		r.Require().NoError(err)
		r.Equal([]byte("blob"), got)
	})

	r.Run("round trip through the store", func() {
		store := view.NewStore(r.repository)
		cfg := view.NewConfiguration(nil, view.SortCriteria{}.Toggled(), view.NewFilterCriteria(), true)
		r.Require().NoError(store.Save(r.ctx, cfg))
		r.Require().NoError(store.Close())

		reopened := view.NewStore(r.repository)
		defer reopened.Close()
		r.True(cfg.Equal(reopened.Load(r.ctx)))
	})
}

func TestViewRepository(t *testing.T) {
	suite.Run(t, &ViewRepositoryTestSuite{})
}
