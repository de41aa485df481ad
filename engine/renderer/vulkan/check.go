package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/penumbra/engine/core"
)

// check logs a failed native call together with the call expression. Debug
// builds stop right there; release builds hand the error back to the caller.
func check(result vk.Result, call string) error {
	if VulkanResultIsSuccess(result) {
		return nil
	}
	err := fmt.Errorf("%s failed with %s", call, VulkanResultString(result, true))
	core.LogError(err.Error())
	if breakOnError {
		panic(err)
	}
	return err
}
