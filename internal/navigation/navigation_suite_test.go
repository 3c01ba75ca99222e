// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 WidgetDeck Contributors

package navigation_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
)

func TestNavigation(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Navigation Suite")
}
