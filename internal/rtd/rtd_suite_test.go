package rtd_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestRTD(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "RTD Suite")
}
