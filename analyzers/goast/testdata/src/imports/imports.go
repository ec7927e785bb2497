package imports

import (
	"fmt"
	"net/http"

	yaml "encoding/yaml"
	"github.com/stretchr/testify/assert"
)

import _ "crypto/sha3"

func Run() {
	fmt.Println(http.StatusOK, yaml.Marshal, assert.Equal)
}
