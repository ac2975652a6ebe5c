package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Comprador burro para validar o gateway na mão: resolve o desafio, pega o
// caminho, posta o pedido e fica fazendo poll do resultado.
//
// Uso: BASE=http://localhost:8080 TOKEN=tokenA ITEM=ipad go run .

type resposta struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

func main() {
	base := getenv("BASE", "http://localhost:8080")
	token := getenv("TOKEN", "tokenA")
	item := getenv("ITEM", "ipad")

	fmt.Printf("comprando %q em %s com credencial %q\n", item, base, token)

	// 1) desafio
	var desafio struct {
		Challenge string `json:"challenge"`
	}
	if err := get(base+"/seckill/challenge?item="+url.QueryEscape(item), token, &desafio); err != nil {
		fmt.Printf("Erro no desafio: %s\n", err)
		os.Exit(1)
	}
	resp := resolve(desafio.Challenge)
	fmt.Printf("desafio %q => %d\n", desafio.Challenge, resp)

	// 2) caminho
	var caminho struct {
		Path string `json:"path"`
	}
	urlPath := fmt.Sprintf("%s/seckill/path?item=%s&answer=%d", base, url.QueryEscape(item), resp)
	if err := get(urlPath, token, &caminho); err != nil {
		fmt.Printf("Erro no caminho: %s\n", err)
		os.Exit(1)
	}
	fmt.Printf("caminho %s...\n", caminho.Path[:12])

	// 3) pedido
	var pedido struct {
		Status string `json:"status"`
	}
	urlOrder := fmt.Sprintf("%s/seckill/%s/order?item=%s", base, caminho.Path, url.QueryEscape(item))
	if err := call(http.MethodPost, urlOrder, token, &pedido); err != nil {
		fmt.Printf("Erro no pedido: %s\n", err)
		os.Exit(1)
	}
	fmt.Printf("pedido: %s\n", pedido.Status)

	// 4) poll do resultado
	for i := 0; i < 20; i++ {
		var res struct {
			Result int64 `json:"result"`
		}
		if err := get(base+"/seckill/result?item="+url.QueryEscape(item), token, &res); err != nil {
			fmt.Printf("Erro no resultado: %s\n", err)
			os.Exit(1)
		}
		switch {
		case res.Result > 0:
			fmt.Printf("GANHOU! pedido %d\n", res.Result)
			return
		case res.Result == -1:
			fmt.Println("esgotou :(")
			return
		}
		fmt.Println("pendente...")
		time.Sleep(500 * time.Millisecond)
	}
	fmt.Println("desisti de esperar")
}

func get(u, token string, out interface{}) error {
	return call(http.MethodGet, u, token, out)
}

func call(method, u, token string, out interface{}) error {
	req, err := http.NewRequest(method, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("X-Auth-Token", token)

	res, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	var body resposta
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return err
	}
	if body.Code != 0 {
		return fmt.Errorf("code %d: %s", body.Code, body.Msg)
	}
	if out != nil && len(body.Data) > 0 {
		return json.Unmarshal(body.Data, out)
	}
	return nil
}

// resolve avalia o desafio "a+b*c" com precedência (× antes de +/−).
func resolve(texto string) int64 {
	var nums []int64
	var ops []byte
	cur := strings.Builder{}
	for i := 0; i < len(texto); i++ {
		c := texto[i]
		if c == '+' || c == '*' || (c == '-' && cur.Len() > 0) {
			n, _ := strconv.ParseInt(cur.String(), 10, 64)
			nums = append(nums, n)
			ops = append(ops, c)
			cur.Reset()
			continue
		}
		cur.WriteByte(c)
	}
	n, _ := strconv.ParseInt(cur.String(), 10, 64)
	nums = append(nums, n)

	for i := 0; i < len(ops); {
		if ops[i] != '*' {
			i++
			continue
		}
		nums[i] *= nums[i+1]
		nums = append(nums[:i+1], nums[i+2:]...)
		ops = append(ops[:i], ops[i+1:]...)
	}
	acc := nums[0]
	for i, op := range ops {
		if op == '+' {
			acc += nums[i+1]
		} else {
			acc -= nums[i+1]
		}
	}
	return acc
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
