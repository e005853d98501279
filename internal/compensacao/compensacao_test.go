package compensacao

import (
	"context"
	"errors"
	"testing"
)

func TestExecutarOrdemReversa(t *testing.T) {
	var ordem []string
	var l Lista
	l.Add("primeira", func(context.Context) error {
		ordem = append(ordem, "primeira")
		return nil
	})
	l.Add("segunda", func(context.Context) error {
		ordem = append(ordem, "segunda")
		return nil
	})

	l.Executar(context.Background())
	if len(ordem) != 2 || ordem[0] != "segunda" || ordem[1] != "primeira" {
		t.Fatalf("ordem errada: %v", ordem)
	}

	// Rodar de novo é um no-op; a lista foi esvaziada.
	l.Executar(context.Background())
	if len(ordem) != 2 {
		t.Fatalf("compensações rodaram duas vezes: %v", ordem)
	}
}

func TestExecutarSegueAposFalha(t *testing.T) {
	executou := false
	var l Lista
	l.Add("intacta", func(context.Context) error {
		executou = true
		return nil
	})
	l.Add("quebrada", func(context.Context) error {
		return errors.New("boom")
	})

	l.Executar(context.Background())
	if !executou {
		t.Fatal("falha de uma compensação interrompeu as demais")
	}
}
