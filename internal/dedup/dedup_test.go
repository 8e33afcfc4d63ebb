// Copyright (c) 2026 John Earle
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

package dedup

import (
	"testing"
	"time"
)

func TestFilter_Key(t *testing.T) {
	if got := NewFilter(nil, "", 0).Key("<abc@tj.jus.br>"); got != "esteira:captured:<abc@tj.jus.br>" {
		t.Errorf("Key = %q", got)
	}
}

func TestFilter_KeyFollowsConfiguredPrefix(t *testing.T) {
	if got := NewFilter(nil, "homolog:", 0).Key("<abc@tj.jus.br>"); got != "homolog:captured:<abc@tj.jus.br>" {
		t.Errorf("Key = %q", got)
	}
}

func TestNewFilter_DefaultTTL(t *testing.T) {
	if f := NewFilter(nil, "", 0); f.ttl != DefaultTTL {
		t.Errorf("ttl = %v, want %v", f.ttl, DefaultTTL)
	}
	if f := NewFilter(nil, "", time.Hour); f.ttl != time.Hour {
		t.Errorf("ttl = %v, want 1h", f.ttl)
	}
}
