// Copyright 2021-2022
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package common_test

import (
	"bytes"
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/penny-vault/ca-validator/common"
	"github.com/penny-vault/ca-validator/config"
)

var _ = Describe("Common", func() {
	Describe("Cache", func() {
		var (
			ctx   context.Context
			cache *common.Cache
		)

		BeforeEach(func() {
			var err error
			ctx = context.Background()
			cache, err = common.NewCache(config.Cache{LocalSize: 2, TTL: 60})
			Expect(err).To(BeNil())
		})

		It("returns what was stored", func() {
			val := bytes.Repeat([]byte(`{"ID_RIC":"BHP.AX","SECURITY_TYP":"Common Stock"}`), 20)
			Expect(cache.Set(ctx, "symbology:BHP.AX", val)).To(Succeed())

			got, err := cache.Get(ctx, "symbology:BHP.AX")
			Expect(err).To(BeNil())
			Expect(got).To(Equal(val))
		})

		It("misses unknown and evicted keys", func() {
			_, err := cache.Get(ctx, "currency:VOD.L")
			Expect(errors.Is(err, common.ErrCacheMiss)).To(BeTrue())

			Expect(cache.Set(ctx, "a", []byte("1"))).To(Succeed())
			Expect(cache.Set(ctx, "b", []byte("2"))).To(Succeed())
			Expect(cache.Set(ctx, "c", []byte("3"))).To(Succeed())

			_, err = cache.Get(ctx, "a")
			Expect(errors.Is(err, common.ErrCacheMiss)).To(BeTrue())
		})

		It("forgets everything after a purge", func() {
			Expect(cache.Set(ctx, "symbology:BHP.AX", []byte("REIT"))).To(Succeed())
			cache.Purge()

			_, err := cache.Get(ctx, "symbology:BHP.AX")
			Expect(errors.Is(err, common.ErrCacheMiss)).To(BeTrue())
		})

		It("always misses when nil", func() {
			var none *common.Cache
			none.Purge()
			Expect(none.Set(ctx, "a", []byte("1"))).To(Succeed())
			_, err := none.Get(ctx, "a")
			Expect(errors.Is(err, common.ErrCacheMiss)).To(BeTrue())
			Expect(none.Close()).To(Succeed())
		})

		It("rejects a malformed redis url", func() {
			_, err := common.NewCache(config.Cache{LocalSize: 1, Redis: true, RedisURL: "mysql://nope"})
			Expect(err).NotTo(BeNil())
		})
	})

	Describe("GetTimezone", func() {
		It("loads named locations", func() {
			Expect(common.GetTimezone("Europe/Berlin").String()).To(Equal("Europe/Berlin"))
		})

		It("falls back to UTC", func() {
			Expect(common.GetTimezone("")).To(Equal(time.UTC))
			Expect(common.GetTimezone("Nowhere/Special")).To(Equal(time.UTC))
		})
	})

	It("describes the build", func() {
		Expect(common.BuildVersionString(false)).To(HavePrefix("cavalidator v" + common.CurrentVersion.String()))
	})
})
