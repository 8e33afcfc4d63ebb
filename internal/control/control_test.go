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

package control

import (
	"testing"

	"github.com/gofjud/esteira/internal/models"
)

func TestProgress_RoundTripUsesOperatorNames(t *testing.T) {
	data, err := EncodeProgress(models.Progress{Total: 10, Current: 3})
	if err != nil {
		t.Fatalf("EncodeProgress: %v", err)
	}
	if string(data) != `{"total":10,"atual":3,"finalizado":false}` {
		t.Errorf("encoded = %s", data)
	}
	p, err := DecodeProgress(data)
	if err != nil {
		t.Fatalf("DecodeProgress: %v", err)
	}
	if p.Total != 10 || p.Current != 3 || p.Done {
		t.Errorf("decoded = %+v", p)
	}
}

func TestDecodeProgress_RejectsGarbage(t *testing.T) {
	if _, err := DecodeProgress([]byte("nope")); err == nil {
		t.Error("expected error")
	}
}

func TestStore_Keys(t *testing.T) {
	s := NewStore(nil, "")
	if got := s.pauseKey(); got != "esteira:pausado" {
		t.Errorf("pauseKey = %q", got)
	}
	if got := NewStore(nil, "x:").progressKey(JobCapture); got != "x:progresso:captura" {
		t.Errorf("progressKey = %q", got)
	}
}
