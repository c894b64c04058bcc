package captcha

import (
	"fmt"
	"time"

	"github.com/go-rod/rod"
)

// InjectRecaptchaSolution writes a solved reCAPTCHA token into the page and
// attempts to submit the form that carries it.
func InjectRecaptchaSolution(page *rod.Page, solution string) error {
	js := fmt.Sprintf(`() => {
		if (document.getElementById('g-recaptcha-response')) {
			document.getElementById('g-recaptcha-response').innerHTML = %q;
		}
		let responseElements = document.querySelectorAll('[name="g-recaptcha-response"]');
		for (let element of responseElements) {
			element.value = %q;
			element.innerHTML = %q;
		}
		let el = document.querySelector('.g-recaptcha');
		if (el) {
			let callback = el.getAttribute('data-callback');
			if (callback && typeof window[callback] === 'function') {
				window[callback](%q);
			}
		}
		let forms = document.querySelectorAll('form');
		for (let form of forms) {
			if (form.querySelector('.g-recaptcha') || form.querySelector('[name="g-recaptcha-response"]')) {
				form.submit();
				break;
			}
		}
	}`, solution, solution, solution, solution)

	if err := rod.Try(func() { page.MustEval(js) }); err != nil {
		return fmt.Errorf("inject recaptcha solution: %w", err)
	}
	return nil
}

// InjectTurnstileSolution writes a solved Cloudflare Turnstile token into
// the page and attempts to submit the form that carries it.
func InjectTurnstileSolution(page *rod.Page, solution string) error {
	js := fmt.Sprintf(`() => {
		let turnstileElements = document.querySelectorAll('[data-sitekey]');
		for (let element of turnstileElements) {
			if (element.closest('.cf-turnstile') || element.classList.contains('cf-turnstile')) {
				let responseInput = element.querySelector('input[name="cf-turnstile-response"]');
				if (!responseInput) {
					responseInput = document.createElement('input');
					responseInput.type = 'hidden';
					responseInput.name = 'cf-turnstile-response';
					element.appendChild(responseInput);
				}
				responseInput.value = %q;
				let callback = element.getAttribute('data-callback');
				if (callback && typeof window[callback] === 'function') {
					window[callback](%q);
				}
			}
		}
		let responseElements = document.querySelectorAll('input[name*="turnstile"], input[name*="cf-turnstile"]');
		for (let element of responseElements) {
			element.value = %q;
		}
		let forms = document.querySelectorAll('form');
		for (let form of forms) {
			if (form.querySelector('.cf-turnstile') || form.querySelector('[data-sitekey]')) {
				form.submit();
				break;
			}
		}
	}`, solution, solution, solution)

	if err := rod.Try(func() { page.MustEval(js) }); err != nil {
		return fmt.Errorf("inject turnstile solution: %w", err)
	}
	return nil
}

// SimulateHumanBehavior performs mouse-curve movement, scrolling, and
// focus/blur events to help clear a Cloudflare challenge without a token.
func SimulateHumanBehavior(page *rod.Page) error {
	return rod.Try(func() {
		viewport := page.MustEval(`() => ({width: window.innerWidth, height: window.innerHeight})`)
		width := int(viewport.Get("width").Num())
		height := int(viewport.Get("height").Num())

		for i := 0; i < 5; i++ {
			startX := 100 + (i * 50) + (i % 3 * 100)
			startY := 100 + (i * 30) + (i % 2 * 150)
			endX := startX + 50 + (i * 20)
			endY := startY + 30 + (i * 25)
			if startX >= width || startY >= height || endX >= width || endY >= height {
				continue
			}
			page.Mouse.MustMoveTo(float64(startX), float64(startY))
			time.Sleep(time.Duration(200+i*100) * time.Millisecond)
			midX, midY := (startX+endX)/2, (startY+endY)/2
			page.Mouse.MustMoveTo(float64(midX), float64(midY))
			time.Sleep(time.Duration(100+i*50) * time.Millisecond)
			page.Mouse.MustMoveTo(float64(endX), float64(endY))
			time.Sleep(time.Duration(300+i*100) * time.Millisecond)
		}

		page.MustEval(`() => {
			document.body.focus();
			['keydown', 'keyup'].forEach(e => document.dispatchEvent(new KeyboardEvent(e, {key: 'Tab'})));
		}`)
		time.Sleep(500 * time.Millisecond)

		page.MustEval(`() => {
			window.scrollTo({top: 200, behavior: 'smooth'});
			setTimeout(() => window.scrollTo({top: 50, behavior: 'smooth'}), 800);
			setTimeout(() => window.scrollTo({top: 0, behavior: 'smooth'}), 1600);
		}`)
		time.Sleep(2 * time.Second)

		page.MustEval(`() => {
			window.dispatchEvent(new Event('focus'));
			setTimeout(() => window.dispatchEvent(new Event('blur')), 200);
			setTimeout(() => window.dispatchEvent(new Event('focus')), 400);
			document.dispatchEvent(new Event('visibilitychange'));
		}`)
		time.Sleep(3 * time.Second)
	})
}
