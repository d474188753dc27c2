package storageutils_test

import (
	"context"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/brainstream/pkg/storage/inmemory"
	"github.com/papercomputeco/brainstream/pkg/storage/sqlite"
	"github.com/papercomputeco/brainstream/pkg/storage/storagetest"
	storageutils "github.com/papercomputeco/brainstream/pkg/storage/utils"
)

var _ = Describe("NewDriver", func() {
	ctx := context.Background()

	It("defaults to the in-memory archive", func() {
		driver, err := storageutils.NewDriver(ctx, &storageutils.NewDriverOpts{})
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(driver.Close)
		Expect(driver).To(BeAssignableToTypeOf(&inmemory.Driver{}))
	})

	It("opens a sqlite archive at the target path", func() {
		path := filepath.Join(GinkgoT().TempDir(), "archive.sqlite")
		driver, err := storageutils.NewDriver(ctx, &storageutils.NewDriverOpts{
			ProviderType: storageutils.ProviderSQLite,
			Target:       path,
		})
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(driver.Close)
		Expect(driver).To(BeAssignableToTypeOf(&sqlite.SQLiteDriver{}))

		Expect(driver.Append(ctx, storagetest.NewRecord("conn-1", 1, "hello"))).To(Succeed())
		Expect(driver.Count(ctx)).To(Equal(int64(1)))
	})

	It("requires a target for sqlite and postgres", func() {
		_, err := storageutils.NewDriver(ctx, &storageutils.NewDriverOpts{ProviderType: storageutils.ProviderSQLite})
		Expect(err).To(MatchError(storageutils.ErrMissingTarget))

		_, err = storageutils.NewDriver(ctx, &storageutils.NewDriverOpts{ProviderType: storageutils.ProviderPostgres})
		Expect(err).To(MatchError(storageutils.ErrMissingTarget))
	})

	It("rejects unknown providers", func() {
		_, err := storageutils.NewDriver(ctx, &storageutils.NewDriverOpts{ProviderType: "s3"})
		Expect(err).To(MatchError(ContainSubstring("unsupported archive provider: s3")))
	})
})
